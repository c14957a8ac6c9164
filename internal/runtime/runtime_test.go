package runtime

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"

	cfgpkg "github.com/wiredium/ripple/internal/config"
	"github.com/wiredium/ripple/internal/topic"
)

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestPublishThroughRuntime(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	tp, err := topic.Parse("workflow:1")
	if err != nil {
		t.Fatalf("parse topic: %v", err)
	}
	seq, err := rt.Bus().Publish(context.Background(), tp, "created", json.RawMessage(`{"ok":true}`))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seq != 1 {
		t.Fatalf("seq = %d, want 1", seq)
	}
}

func TestAuthCollaboratorsDefaultOpen(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	p, ok := rt.Authenticator().Authenticate(ctx, "")
	if !ok || p == "" {
		t.Fatalf("authenticate: %q ok=%v", p, ok)
	}
	tp, _ := topic.Parse("project:7")
	if !rt.Authorizer().Allow(ctx, p, tp) {
		t.Fatalf("default config should allow")
	}
}
