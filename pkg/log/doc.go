// Package log provides Ripple's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library slog via a bridge handler that preserves our formatter/output
// pipeline, so slog-aware tooling keeps working while the codebase stays
// against this facade.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"))
//	l.Info("server started", log.Str("http", ":8080"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config supporting text
// or JSON formatting, a console output, and an optional size-rotated file
// output (lumberjack).
//
// # Interop
//
// RedirectStdLog routes the standard library logger through a Logger;
// ToStdLogger adapts a Logger for libraries that require *log.Logger.
package log
