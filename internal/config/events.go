package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type EventsConfig struct {
	// NATSURL is empty when events are not published.
	NATSURL       string
	SubjectPrefix string
}

func (c *EventsConfig) Key() string {
	return EVENTS_CONFIG_KEY
}

func (c *EventsConfig) Load() error {
	c.NATSURL = common.GetEnvOrDefault("NATS_URL", "")
	c.SubjectPrefix = common.GetEnvOrDefault("NATS_SUBJECT_PREFIX", "quote-engine")
	return nil
}

func (c *EventsConfig) Validate() error {
	return nil
}
