// Package config loads server configuration from an optional TOML file with
// environment overrides. Env wins over file, file wins over defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `toml:"listen_addr"`

	// DBPath is the SQLite database file path.
	DBPath string `toml:"db_path"`

	Log        Log        `toml:"log"`
	Settlement Settlement `toml:"settlement"`
}

// Log configures logging output.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`

	// Format is text (colored, for terminals) or json.
	Format string `toml:"format"`
}

// Settlement configures payment policy.
type Settlement struct {
	// AllowOverpayment permits settlements larger than the payer's
	// outstanding debt; the balance then swings positive in the payer's
	// favor. Disable to reject such payments instead.
	AllowOverpayment bool `toml:"allow_overpayment"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "./data/evensplit.db",
		Log:        Log{Level: "info", Format: "json"},
		Settlement: Settlement{AllowOverpayment: true},
	}
}

// Load reads the TOML file at path (if non-empty and present) over the
// defaults, then applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ALLOW_OVERPAYMENT"); v != "" {
		cfg.Settlement.AllowOverpayment = v == "true" || v == "1"
	}
}
