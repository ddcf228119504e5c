package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load resolves the effective configuration: defaults, overlaid by the
// TOML config file (if one exists), overlaid by environment overrides.
// configPath selects the file explicitly; when empty, the env override
// and then the default path are tried. A missing file is not an error —
// the defaults stand.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	overrides, err := ReadEnvOverrides()
	if err != nil {
		return Config{}, err
	}

	path := configPath
	if path == "" {
		path = overrides.ConfigPath
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Environment beats the file.
	if overrides.BaseURL != "" {
		cfg.Server.BaseURL = overrides.BaseURL
	}

	if overrides.LogLevel != "" {
		cfg.Logging.Level = overrides.LogLevel
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadFile overlays the TOML file at path onto cfg. Unknown keys are
// rejected so a typo fails loudly instead of being silently ignored.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	return nil
}

// validate rejects configurations the client cannot run with.
func (c Config) validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("config: server.base_url must not be empty")
	}

	if c.Server.Timeout != "" {
		if _, err := time.ParseDuration(c.Server.Timeout); err != nil {
			return fmt.Errorf("config: invalid server.timeout %q: %w", c.Server.Timeout, err)
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging.level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json", "auto":
	default:
		return fmt.Errorf("config: invalid logging.format %q", c.Logging.Format)
	}

	return nil
}

// HTTPTimeout returns the parsed server timeout, or fallback when unset.
func (c Config) HTTPTimeout(fallback time.Duration) time.Duration {
	if c.Server.Timeout == "" {
		return fallback
	}

	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return fallback
	}

	return d
}
