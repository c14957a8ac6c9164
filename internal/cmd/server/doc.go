// Package serverrun boots the Ripple server process: logger setup, runtime
// construction, HTTP serving, and signal-driven graceful shutdown.
package serverrun
