package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides holds values derived from environment variables. These
// override config-file values but lose to CLI flags.
type EnvOverrides struct {
	ConfigPath string `env:"GOTMAIL_CONFIG"`
	BaseURL    string `env:"GOTMAIL_SERVER_URL"`
	LogLevel   string `env:"GOTMAIL_LOG_LEVEL"`
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Load applies the relevant
// fields.
func ReadEnvOverrides() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	return overrides, nil
}
