package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Log           LogConfig           `yaml:"log"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConsolidationConfig tunes the legacy consolidation batch job.
type ConsolidationConfig struct {
	SourcePath      string  `yaml:"source_path"` // legacy weekly records, JSON; empty disables the batch
	Workers         int     `yaml:"workers"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" or "production"
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "rounds.db"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Consolidation.Workers <= 0 {
		cfg.Consolidation.Workers = 4
	}
	if cfg.Consolidation.RateLimitPerSec <= 0 {
		cfg.Consolidation.RateLimitPerSec = 50
	}

	return &cfg, nil
}
