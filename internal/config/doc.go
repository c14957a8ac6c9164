// Package config defines the server configuration: replay-window and queue
// capacities, heartbeat/idle/eviction timings, auth material, and logging.
// Values come from built-in defaults, an optional JSON or YAML file, and a
// RIPPLE_* environment overlay, in that order.
package config
