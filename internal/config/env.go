package config

import (
	"os"
	"strconv"
)

// FromEnv overlays RIPPLE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	setInt(&cfg.EventLogCapacityPerTopic, "RIPPLE_EVENT_LOG_CAPACITY")
	setInt(&cfg.ConnectionQueueCapacity, "RIPPLE_CONNECTION_QUEUE_CAPACITY")
	setInt64(&cfg.HeartbeatIntervalMs, "RIPPLE_HEARTBEAT_INTERVAL_MS")
	setInt64(&cfg.IdleConnectionTimeoutMs, "RIPPLE_IDLE_CONNECTION_TIMEOUT_MS")
	setInt64(&cfg.TopicIdleEvictionGraceMs, "RIPPLE_TOPIC_IDLE_EVICTION_GRACE_MS")
	if v := os.Getenv("RIPPLE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RIPPLE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RIPPLE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			*dst = n
		}
	}
}
