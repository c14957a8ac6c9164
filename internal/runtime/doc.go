// Package runtime wires the event bus, auth collaborators, and config into
// a single-node Ripple instance. It exposes Open/Close, basic health checks,
// and accessors used by the HTTP layer.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	seq, _ := rt.Bus().Publish(ctx, tp, "updated", payload)
package runtime
