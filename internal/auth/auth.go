package auth

import (
	"context"
	"strings"

	"github.com/wiredium/ripple/internal/config"
	"github.com/wiredium/ripple/internal/topic"
)

// AnonymousPrincipal is assumed when no token material is configured.
const AnonymousPrincipal = "anonymous"

// Authenticator resolves a bearer token to a principal name.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (principal string, ok bool)
}

// Authorizer decides whether a principal may read a topic. It is consulted
// once per topic per connection attempt, never per event.
type Authorizer interface {
	Allow(ctx context.Context, principal string, t topic.Topic) bool
}

// Static implements both interfaces from config material: a token→principal
// map and per-principal topic grants. With no tokens configured every request
// authenticates as AnonymousPrincipal; with no grants configured every topic
// is readable. This is the dev/single-tenant deployment shape; production
// deployments plug in their own collaborator.
type Static struct {
	tokens map[string]string
	grants map[string][]string
}

// NewStatic builds a Static authenticator/authorizer from config.
func NewStatic(cfg config.AuthConfig) *Static {
	return &Static{tokens: cfg.Tokens, grants: cfg.Grants}
}

// Authenticate resolves the token. An empty token map admits everyone as the
// anonymous principal; otherwise unknown tokens are rejected.
func (s *Static) Authenticate(_ context.Context, token string) (string, bool) {
	if len(s.tokens) == 0 {
		return AnonymousPrincipal, true
	}
	p, ok := s.tokens[token]
	return p, ok
}

// Allow checks the principal's grants against the topic. Patterns are either
// a full topic ("workflow:42") or a kind wildcard ("workflow:*").
func (s *Static) Allow(_ context.Context, principal string, t topic.Topic) bool {
	if len(s.grants) == 0 {
		return true
	}
	for _, pat := range s.grants[principal] {
		if pat == t.String() {
			return true
		}
		if kind, rest, ok := strings.Cut(pat, ":"); ok && rest == "*" && kind == t.Kind {
			return true
		}
	}
	return false
}
