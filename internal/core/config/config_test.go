package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "execdoc.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[runtime]
modules = ["math", "data"]

[server]
transport = "HTTP"
address = "127.0.0.1:9000"

[server.rate_limit]
enabled = true
requests_per_minute = 60

[db]
enabled = true
path = "journal.db"

[watch]
debounce = "1s"
include = ["*.json"]

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"math", "data"}, cfg.Runtime.Modules)
	assert.Equal(t, []string{"py", "python"}, cfg.Runtime.Languages)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.Server.RateLimit.RequestsPerMinute)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "journal.db", cfg.DB.Path)
	assert.Equal(t, 5*time.Second, cfg.DB.BusyTimeout)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"*.json"}, cfg.Watch.Include)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.DB.Enabled)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"version":   "version = 3",
		"language":  "[runtime]\nlanguages = [\"r\"]",
		"module":    "[runtime]\nmodules = [\"numpy\"]",
		"transport": "[server]\ntransport = \"grpc\"",
		"port":      "[observability]\nport = 70000",
		"tracing":   "[observability]\nenable_tracing = true",
		"level":     "[logging]\nlevel = \"loud\"",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("EXECDOC_SERVER_TRANSPORT", "http")
	t.Setenv("EXECDOC_DB_ENABLED", "true")
	t.Setenv("EXECDOC_OBSERVABILITY_PORT", "9999")
	t.Setenv("EXECDOC_RUNTIME_MODULES", "math, json")
	t.Setenv("EXECDOC_WATCH_DEBOUNCE", "2s")
	t.Setenv("EXECDOC_SERVER_RATE_LIMIT_BURST", "not-a-number")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "http", cfg.Server.Transport)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, 9999, cfg.Observability.Port)
	assert.Equal(t, []string{"math", "json"}, cfg.Runtime.Modules)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst, "invalid values are ignored")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestWatcher_Reloads(t *testing.T) {
	path := writeConfig(t, "[logging]\nlevel = \"info\"\n\n[watch]\ndebounce = \"20ms\"\n")
	current, err := Load(path)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, current, func(cfg *Config) {
		reloaded <- cfg
	})
	assert.Equal(t, 20*time.Millisecond, w.Debounce())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n\n[watch]\ndebounce = \"30ms\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, 30*time.Millisecond, w.Debounce(), "the reloaded debounce applies to later writes")
}

func TestWatcher_IgnoresUnchangedRewrite(t *testing.T) {
	content := "[logging]\nlevel = \"warn\"\n\n[watch]\ndebounce = \"10ms\"\n"
	path := writeConfig(t, content)
	current, err := Load(path)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, current, func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	assert.Never(t, func() bool { return len(reloaded) > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestNewWatcher_DefaultsWithoutCurrent(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.toml"), nil, nil)
	assert.Equal(t, Default().Watch.Debounce, w.Debounce())
}
