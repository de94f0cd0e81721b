package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Orchestrator.MaxParallelTasks)
	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, ".vibegraph/vibegraph.db", cfg.Database.DSN)
	assert.Equal(t, 300*time.Second, cfg.Github.SyncInterval.Std())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
orchestrator:
  max_parallel_tasks: 8
database:
  dialect: postgres
  dsn: postgres://localhost/vibegraph
github:
  sync_interval: 1m
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Orchestrator.MaxParallelTasks)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://localhost/vibegraph", cfg.Database.DSN)
	assert.Equal(t, time.Minute, cfg.Github.SyncInterval.Std())
}

func TestLoad_ProjectConfigDiscovered(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll(ConfigDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ConfigDir, ConfigFileName), []byte("server:\n  addr: \":7070\"\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(ConfigDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ConfigDir, ConfigFileName), []byte("server:\n  addr: \":9090\"\n"), 0644))
	t.Setenv("VIBEGRAPH_ADDR", ":6060")
	t.Setenv("VIBEGRAPH_DB_DIALECT", "postgres")
	t.Setenv("VIBEGRAPH_DB_DSN", "postgres://env")
	t.Setenv("VIBEGRAPH_SYNC_INTERVAL", "30s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Github.SyncInterval.Std())
}

func TestValidate(t *testing.T) {
	valid := Default()
	require.NoError(t, valid.Validate())

	badDialect := Default()
	badDialect.Database.Dialect = "oracle"
	assert.Error(t, badDialect.Validate())

	badParallel := Default()
	badParallel.Orchestrator.MaxParallelTasks = 0
	assert.Error(t, badParallel.Validate())

	badInterval := Default()
	badInterval.Github.SyncInterval = 0
	assert.Error(t, badInterval.Validate())

	badAddr := Default()
	badAddr.Server.Addr = ""
	assert.Error(t, badAddr.Validate())
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
