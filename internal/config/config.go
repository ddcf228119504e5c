// Package config implements TOML configuration loading, environment
// overrides, and platform-specific path resolution for gotmail-go.
// Precedence is defaults -> config file -> environment -> CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Cache   CacheConfig   `toml:"cache"`
}

// ServerConfig points the client at a GotMail service deployment.
type ServerConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"` // Go duration string, e.g. "30s"
}

// LoggingConfig controls log verbosity and output format.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json, auto (terminal detection)
}

// CacheConfig controls the offline identity snapshot.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // defaults to <data dir>/cache.db
}

// Defaults returns the built-in configuration used when no config file
// exists or a field is unset.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}
