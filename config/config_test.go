package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pacs/loan-engine/config"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yml", `
server:
  port: 9090
database:
  path: ":memory:"
log:
  level: debug
  format: console
schemes_file: /etc/loan-engine/schemes.json
scheduler:
  enabled: false
  interval: 30m
cors:
  allowed_origins: ["http://localhost:3000"]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/etc/loan-engine/schemes.json", cfg.SchemesFile)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "config.yml", "server:\n  port: 9090\n")
	t.Setenv("LOANENGINE_SERVER_PORT", "7070")
	t.Setenv("LOANENGINE_DATABASE_PATH", "/tmp/env.db")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad.yml", "server:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "invalid server port")

	_, err = config.Load(writeFile(t, "tz.yml", "scheduler:\n  timezone: Mars/Olympus\n"))
	assert.ErrorContains(t, err, "invalid scheduler timezone")
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LogConfig{Level: "warn", Format: "console"}, "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = config.NewLogger(config.LogConfig{Level: "warn"}, "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = config.NewLogger(config.LogConfig{Level: "loud"}, "")
	assert.Error(t, err)

	_, err = config.NewLogger(config.LogConfig{Format: "xml"}, "")
	assert.Error(t, err)
}
