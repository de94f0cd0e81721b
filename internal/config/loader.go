package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigDir is the project-local directory holding vibegraph state.
const ConfigDir = ".vibegraph"

// ConfigFileName is the config file name inside ConfigDir.
const ConfigFileName = "config.yaml"

// Load reads configuration in override order: built-in defaults, then
// the config file (explicit path or .vibegraph/config.yaml when
// present), then VIBEGRAPH_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidate := filepath.Join(ConfigDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from VIBEGRAPH_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VIBEGRAPH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VIBEGRAPH_DB_DIALECT"); v != "" {
		cfg.Database.Dialect = v
	}
	if v := os.Getenv("VIBEGRAPH_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VIBEGRAPH_GITHUB_TOKEN"); v != "" {
		cfg.Github.Token = v
	}
	if v := os.Getenv("VIBEGRAPH_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Github.SyncInterval = Duration(d)
		}
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Orchestrator.MaxParallelTasks < 1 {
		return fmt.Errorf("orchestrator.max_parallel_tasks must be at least 1, got %d", c.Orchestrator.MaxParallelTasks)
	}
	switch c.Database.Dialect {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return fmt.Errorf("database.dialect must be sqlite or postgres, got %q", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if c.Github.SyncInterval <= 0 {
		return fmt.Errorf("github.sync_interval must be positive, got %s", c.Github.SyncInterval.Std())
	}
	return nil
}
