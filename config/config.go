// Package config loads the fsdb command line configuration from TOML.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/mwantia/fsdb/log"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	JSON       bool   `toml:"json"`
	NoColor    bool   `toml:"no_color"`
	NoTerminal bool   `toml:"no_terminal"`
}

type DatabaseConfig struct {
	// Catalog is the backend address of the entity catalog. When empty the
	// database is derived from the command arguments.
	Catalog string `toml:"catalog"`

	// Storage is the backend address of file content (default: catalog)
	Storage string `toml:"storage"`

	// Initialize creates missing databases
	Initialize bool `toml:"initialize"`
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from file
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		// Try default locations
		locations := []string{
			".fsdb/config.toml",
			filepath.Join(os.Getenv("HOME"), ".fsdb/config.toml"),
			"/etc/fsdb/config.toml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				if _, err := toml.DecodeFile(loc, cfg); err == nil {
					break
				}
			}
		}
	}

	// Override with environment variables
	applyEnvOverrides(cfg)

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: log.Info.String(),
		},
	}
}

func Validate(cfg *Config) []string {
	var warnings []string

	if _, err := log.Parse(cfg.Log.Level); err != nil {
		warnings = append(warnings, "Log level '"+cfg.Log.Level+"' is unknown, using INFO")
	}
	if cfg.Log.NoTerminal && cfg.Log.File == "" {
		warnings = append(warnings, "Terminal logging is disabled but no log file is set")
	}

	if cfg.Database.Storage != "" && cfg.Database.Catalog == "" {
		warnings = append(warnings, "Database storage is set without a catalog and will be ignored")
	}

	return warnings
}

// NewLogger creates the logger described by the [log] section.
func (cfg *Config) NewLogger(name string) *log.Logger {
	level, err := log.Parse(cfg.Log.Level)
	if err != nil {
		level = log.Info
	}

	logger := log.NewLogger(name, level, cfg.Log.File, cfg.Log.NoTerminal)
	logger.JSON = cfg.Log.JSON
	logger.NoColor = cfg.Log.NoColor

	return logger
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FSDB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FSDB_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("FSDB_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.JSON = b
		}
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		cfg.Log.NoColor = true
	}
	if v := os.Getenv("FSDB_CATALOG"); v != "" {
		cfg.Database.Catalog = v
	}
	if v := os.Getenv("FSDB_STORAGE"); v != "" {
		cfg.Database.Storage = v
	}
}
