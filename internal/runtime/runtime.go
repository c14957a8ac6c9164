package runtime

import (
	"context"
	"errors"

	"github.com/wiredium/ripple/internal/auth"
	"github.com/wiredium/ripple/internal/bus"
	cfgpkg "github.com/wiredium/ripple/internal/config"
	logpkg "github.com/wiredium/ripple/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires the bus, auth collaborators, and config for a single-node
// instance.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	bus    *bus.Bus
	static *auth.Static
}

// Open builds the Runtime and starts background maintenance.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	b := bus.New(bus.Config{
		LogCapacity:    opts.Config.EventLogCapacityPerTopic,
		QueueCapacity:  opts.Config.ConnectionQueueCapacity,
		TopicIdleGrace: opts.Config.TopicIdleEvictionGrace(),
	}, logger)
	b.Start()
	return &Runtime{
		config: opts.Config,
		logger: logger,
		bus:    b,
		static: auth.NewStatic(opts.Config.Auth),
	}, nil
}

// Close stops background maintenance and tears down live connections.
func (r *Runtime) Close() error {
	if r.bus != nil {
		r.bus.Close()
	}
	return nil
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.bus == nil {
		return errors.New("bus not open")
	}
	return ctx.Err()
}

// Bus returns the event bus.
func (r *Runtime) Bus() *bus.Bus { return r.bus }

// Authenticator returns the token resolver.
func (r *Runtime) Authenticator() auth.Authenticator { return r.static }

// Authorizer returns the per-topic access check.
func (r *Runtime) Authorizer() auth.Authorizer { return r.static }

// Logger returns the runtime logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
