package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	logpkg "github.com/wiredium/ripple/pkg/log"
)

// Config is the top-level configuration loaded from file and env.
type Config struct {
	// EventLogCapacityPerTopic bounds each topic's replay window.
	EventLogCapacityPerTopic int `json:"eventLogCapacityPerTopic" yaml:"eventLogCapacityPerTopic"`
	// ConnectionQueueCapacity bounds each subscriber's outbound queue; a full
	// queue marks the connection a slow consumer and evicts it.
	ConnectionQueueCapacity int `json:"connectionQueueCapacity" yaml:"connectionQueueCapacity"`
	// HeartbeatIntervalMs is the keepalive cadence on idle streams.
	HeartbeatIntervalMs int64 `json:"heartbeatIntervalMs" yaml:"heartbeatIntervalMs"`
	// IdleConnectionTimeoutMs evicts connections with no delivered events for
	// this long. 0 disables idle eviction.
	IdleConnectionTimeoutMs int64 `json:"idleConnectionTimeoutMs" yaml:"idleConnectionTimeoutMs"`
	// TopicIdleEvictionGraceMs is how long an unsubscribed, quiet topic's log
	// is retained before reclamation.
	TopicIdleEvictionGraceMs int64 `json:"topicIdleEvictionGraceMs" yaml:"topicIdleEvictionGraceMs"`

	Auth AuthConfig    `json:"auth" yaml:"auth"`
	Log  logpkg.Config `json:"log" yaml:"log"`
}

// AuthConfig configures the built-in static token authenticator/authorizer.
// Empty Tokens means anonymous access; empty Grants means allow-all.
type AuthConfig struct {
	// Tokens maps bearer tokens to principal names.
	Tokens map[string]string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	// Grants maps a principal to topic patterns it may read, each either a
	// full topic ("workflow:42") or a kind wildcard ("workflow:*").
	Grants map[string][]string `json:"grants,omitempty" yaml:"grants,omitempty"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		EventLogCapacityPerTopic: 200,
		ConnectionQueueCapacity:  256,
		HeartbeatIntervalMs:      15_000,
		IdleConnectionTimeoutMs:  10 * 60 * 1000,
		TopicIdleEvictionGraceMs: 60_000,
	}
}

// Load reads configuration from a JSON or YAML file by extension. An empty
// path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// HeartbeatInterval returns the keepalive cadence as a duration.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// IdleConnectionTimeout returns the idle eviction threshold, 0 when disabled.
func (c Config) IdleConnectionTimeout() time.Duration {
	return time.Duration(c.IdleConnectionTimeoutMs) * time.Millisecond
}

// TopicIdleEvictionGrace returns the topic reclamation grace period.
func (c Config) TopicIdleEvictionGrace() time.Duration {
	return time.Duration(c.TopicIdleEvictionGraceMs) * time.Millisecond
}
