// Package config defines vibegraph's configuration and its loader.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "5m" or "300s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration: %s", value.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full vibegraph configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Database     DatabaseConfig     `yaml:"database"`
	Github       GithubConfig       `yaml:"github"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// OrchestratorConfig configures per-project orchestration.
type OrchestratorConfig struct {
	// MaxParallelTasks caps how many tasks run at once per project.
	MaxParallelTasks int `yaml:"max_parallel_tasks"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	// Dialect is "sqlite" or "postgres".
	Dialect string `yaml:"dialect"`
	// DSN is the database path (sqlite) or connection string (postgres).
	DSN string `yaml:"dsn"`
}

// GithubConfig configures the GitHub synchronizer.
type GithubConfig struct {
	// SyncInterval is the monitor's polling period.
	SyncInterval Duration `yaml:"sync_interval"`
	// Token authenticates REST calls; falls back to GITHUB_TOKEN.
	Token string `yaml:"token"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Orchestrator: OrchestratorConfig{
			MaxParallelTasks: 3,
		},
		Database: DatabaseConfig{
			Dialect: "sqlite",
			DSN:     ".vibegraph/vibegraph.db",
		},
		Github: GithubConfig{
			SyncInterval: Duration(300 * time.Second),
		},
	}
}
