package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"

	cfgpkg "github.com/wiredium/ripple/internal/config"
	"github.com/wiredium/ripple/internal/runtime"
	httpserver "github.com/wiredium/ripple/internal/server/http"
	logpkg "github.com/wiredium/ripple/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	HTTPAddr string
	Config   cfgpkg.Config
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context
	// or if signal delivery needs to be observed here. We layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build process-wide logger using env/ApplyConfig; defaults: level=info, format=text
	logCfg := opts.Config.Log
	if logCfg.Level == "" {
		logCfg.Level = getenvDefault("RIPPLE_LOG_LEVEL", "info")
	}
	if logCfg.Format == "" {
		logCfg.Format = getenvDefault("RIPPLE_LOG_FORMAT", "text")
	}
	procLogger, err := logpkg.ApplyConfig(&logCfg)
	if err != nil {
		// Fallback to a sane default
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{Config: opts.Config, Logger: procLogger})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting Ripple server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
		logpkg.Int("log_capacity", opts.Config.EventLogCapacityPerTopic),
		logpkg.Int("queue_capacity", opts.Config.ConnectionQueueCapacity),
		logpkg.Dur("heartbeat", opts.Config.HeartbeatInterval()),
	)

	hsrv := httpserver.New(rt)
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server", logpkg.Err(err))
		}
	})

	<-sctx.Done()
	// Graceful shutdown of the server before the runtime, so in-flight
	// streams see the shutdown close reason.
	hsrv.Close()
	wg.Wait()
	return nil
}
