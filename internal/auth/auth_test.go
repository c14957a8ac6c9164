package auth

import (
	"context"
	"testing"

	"github.com/wiredium/ripple/internal/config"
	"github.com/wiredium/ripple/internal/topic"
)

func mustTopic(t *testing.T, s string) topic.Topic {
	t.Helper()
	tp, err := topic.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tp
}

func TestAuthenticateAnonymousWhenNoTokens(t *testing.T) {
	s := NewStatic(config.AuthConfig{})
	p, ok := s.Authenticate(context.Background(), "")
	if !ok || p != AnonymousPrincipal {
		t.Fatalf("want anonymous, got %q ok=%v", p, ok)
	}
}

func TestAuthenticateTokenMap(t *testing.T) {
	s := NewStatic(config.AuthConfig{Tokens: map[string]string{"tok-1": "alice"}})
	if p, ok := s.Authenticate(context.Background(), "tok-1"); !ok || p != "alice" {
		t.Fatalf("want alice, got %q ok=%v", p, ok)
	}
	if _, ok := s.Authenticate(context.Background(), "bogus"); ok {
		t.Fatalf("unknown token accepted")
	}
}

func TestAllowGrants(t *testing.T) {
	s := NewStatic(config.AuthConfig{Grants: map[string][]string{
		"alice": {"workflow:*", "user:3"},
	}})
	ctx := context.Background()
	if !s.Allow(ctx, "alice", mustTopic(t, "workflow:42")) {
		t.Fatalf("wildcard grant denied")
	}
	if !s.Allow(ctx, "alice", mustTopic(t, "user:3")) {
		t.Fatalf("exact grant denied")
	}
	if s.Allow(ctx, "alice", mustTopic(t, "user:4")) {
		t.Fatalf("ungranted topic allowed")
	}
	if s.Allow(ctx, "bob", mustTopic(t, "workflow:42")) {
		t.Fatalf("unknown principal allowed")
	}
}

func TestAllowAllWhenNoGrants(t *testing.T) {
	s := NewStatic(config.AuthConfig{})
	if !s.Allow(context.Background(), "anyone", mustTopic(t, "project:7")) {
		t.Fatalf("expected allow-all")
	}
}
