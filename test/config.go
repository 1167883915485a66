package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the integration test tunables. Slow CI machines can
// stretch the timeouts through the environment without touching code.
type Config struct {
	VanishAfter     time.Duration `envconfig:"TEST_VANISH_AFTER" default:"200ms"`
	SinkTimeout     time.Duration `envconfig:"TEST_SINK_TIMEOUT" default:"1s"`
	RestartInterval time.Duration `envconfig:"TEST_RESTART_INTERVAL" default:"50ms"`
	DeleteRetryMax  int           `envconfig:"TEST_DELETE_RETRY_MAX" default:"3"`
	DeleteRetryBase time.Duration `envconfig:"TEST_DELETE_RETRY_BASE" default:"10ms"`
	WaitTimeout     time.Duration `envconfig:"TEST_WAIT_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
