package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type PersistenceConfig struct {
	// DBPath is the bolt file holding the last known good routing config.
	// Default: "./data/quote-engine.db"
	DBPath string

	// Enabled controls whether the routing config snapshot is written and
	// used as a fallback when the CMS is unreachable.
	// Default: true
	Enabled bool
}

func (c *PersistenceConfig) Key() string {
	return PERSISTENCE_CONFIG_KEY
}

func (c *PersistenceConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("ROUTING_CONFIG_DB_PATH", "./data/quote-engine.db")
	c.Enabled = common.GetEnvOrDefault("ROUTING_CONFIG_PERSIST", "true") == "true"
	return nil
}

func (c *PersistenceConfig) Validate() error {
	return nil
}
