// Package config loads server settings from an optional YAML file with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// DatabasePath is the sqlite file location.
	DatabasePath string `yaml:"database_path"`
	// SessionTTLHours is how long a login session stays valid.
	SessionTTLHours int `yaml:"session_ttl_hours"`
	// LoginRatePerMinute and LoginBurst throttle login attempts per client.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
	LoginBurst         int `yaml:"login_burst"`
	// BcryptCost is the password hashing cost.
	BcryptCost int `yaml:"bcrypt_cost"`
	// PageSize is the default catalog page size.
	PageSize int `yaml:"page_size"`
	// TestAccountSuffix hides seeded demo accounts from user listings.
	TestAccountSuffix string `yaml:"test_account_suffix"`
	// Debug switches the logger to development output.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:               "127.0.0.1:18750",
		DatabasePath:       "revue.sqlite",
		SessionTTLHours:    24 * 7,
		LoginRatePerMinute: 10,
		LoginBurst:         5,
		BcryptCost:         10,
		PageSize:           20,
		TestAccountSuffix:  "@revue.co.uk",
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
