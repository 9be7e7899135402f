package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server-url", "", "")
	flags.String("spec-version", "", "")
	flags.String("level", "MUST,SHOULD", "")
	flags.String("json-report", "reports/summary.json", "")
	flags.Bool("verbose", false, "")
	flags.String("transport", "http", "")
	return flags
}

func TestNewManager_Defaults(t *testing.T) {
	t.Setenv("MCP_SERVER_URL", "")
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "reports/summary.json", cfg.JSONReport)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Poll.Attempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 8000, cfg.Mock.Port)
	assert.Equal(t, "info", cfg.Logging.Level)

	levels, err := m.Levels()
	require.NoError(t, err)
	assert.Equal(t, []domain.Level{domain.LevelMust, domain.LevelShould}, levels)
}

func TestNewManager_ServerURLFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MCP_SERVER_URL", "http://localhost:9999")

	m, err := NewManager(WithFlags(newTestFlags()))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", m.GetConfig().ServerURL)
	assert.NoError(t, m.ValidateRunner())
}

func TestNewManager_FlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MCP_SERVER_URL", "http://localhost:9999")
	t.Setenv("MCP_COMPLIANCE_TRANSPORT", "websocket")

	flags := newTestFlags()
	require.NoError(t, flags.Parse([]string{"--server-url", "http://127.0.0.1:8000", "--level", "MUST"}))

	m, err := NewManager(WithFlags(flags))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerURL)
	assert.Equal(t, "websocket", cfg.Transport)

	levels, err := m.Levels()
	require.NoError(t, err)
	assert.Equal(t, []domain.Level{domain.LevelMust}, levels)
}

func TestNewManager_ConfigFile(t *testing.T) {
	t.Setenv("MCP_SERVER_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.yaml")
	content := []byte(`
server_url: http://mcp.internal:8080
spec_version: "2024-11-05"
poll:
  attempts: 5
  interval: 1s
history:
  driver: sqlite
  dsn: /tmp/history.db
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := NewManager(WithConfigFile(path))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "http://mcp.internal:8080", cfg.ServerURL)
	assert.Equal(t, "2024-11-05", cfg.SpecVersion)
	assert.Equal(t, 5, cfg.Poll.Attempts)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.NoError(t, m.ValidateRunner())
}

func TestValidateRunner(t *testing.T) {
	t.Setenv("MCP_SERVER_URL", "")
	t.Chdir(t.TempDir())

	tests := []struct {
		name   string
		mutate func(cfg *domain.Config)
		field  string
	}{
		{"missing server url", func(cfg *domain.Config) { cfg.ServerURL = "" }, "server_url"},
		{"bad scheme", func(cfg *domain.Config) { cfg.ServerURL = "ftp://host" }, "server_url"},
		{"bad level", func(cfg *domain.Config) { cfg.Levels = []string{"MAY"} }, "level"},
		{"bad transport", func(cfg *domain.Config) { cfg.Transport = "stdio" }, "transport"},
		{"bad poll attempts", func(cfg *domain.Config) { cfg.Poll.Attempts = 0 }, "poll.attempts"},
		{"bad history driver", func(cfg *domain.Config) { cfg.History.Driver = "mysql" }, "history.driver"},
		{"history without dsn", func(cfg *domain.Config) { cfg.History.Driver = "sqlite" }, "history.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			m.config.ServerURL = "http://localhost:8000"
			tt.mutate(m.config)

			err = m.ValidateRunner()
			require.Error(t, err)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateMock(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)
	assert.NoError(t, m.ValidateMock())

	m.config.Mock.Port = 70000
	assert.Error(t, m.ValidateMock())

	m.config.Mock.Port = 8000
	m.config.Logging.Level = "verbose"
	assert.Error(t, m.ValidateMock())
}
