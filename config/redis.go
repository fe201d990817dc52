package config

import "strings"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// EventsConfig controls publishing of code-generated events.
type EventsConfig struct {
	// Enabled requires a reachable Redis; when false events are dropped.
	Enabled bool `env:"EVENTS_ENABLED" envDefault:"false"`

	// Channel is the pub/sub channel events are published to.
	Channel string `env:"EVENTS_CHANNEL" envDefault:"code-generated"`
}

// Sanitize normalises event configuration values.
func (c *EventsConfig) Sanitize() {
	if c.Channel = strings.TrimSpace(c.Channel); c.Channel == "" {
		c.Channel = "code-generated"
	}
}
