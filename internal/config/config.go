package config

import (
	"fmt"
	"strings"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flag names onto configuration keys
var flagKeys = map[string]string{
	"server-url":   "server_url",
	"spec-version": "spec_version",
	"level":        "levels",
	"features":     "features",
	"json-report":  "json_report",
	"verbose":      "verbose",
	"transport":    "transport",
	"timeout":      "client.timeout",
	"host":         "mock.host",
	"port":         "mock.port",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// Manager loads configuration from defaults, an optional file, environment
// variables and bound command line flags, in increasing order of precedence.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// Option customises a Manager before configuration is loaded
type Option func(*Manager) error

// WithConfigFile reads configuration from an explicit file instead of searching the default paths
func WithConfigFile(path string) Option {
	return func(m *Manager) error {
		if path != "" {
			m.v.SetConfigFile(path)
		}
		return nil
	}
}

// WithFlags binds every known flag present in the set
func WithFlags(flags *pflag.FlagSet) Option {
	return func(m *Manager) error {
		if flags == nil {
			return nil
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := m.v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
		return nil
	}
}

// NewManager creates a new configuration manager
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{v: viper.New()}
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/mcp-compliance-runner/")

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	m.v.SetEnvPrefix("MCP_COMPLIANCE")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	// MCP_SERVER_URL is the documented override and wins over the prefixed form
	if err := m.v.BindEnv("server_url", "MCP_SERVER_URL", "MCP_COMPLIANCE_SERVER_URL"); err != nil {
		return fmt.Errorf("error binding server url env: %w", err)
	}

	m.setDefaults()

	// Config file is optional
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	m.v.SetDefault("spec_version", "")
	m.v.SetDefault("levels", []string{string(domain.LevelMust), string(domain.LevelShould)})
	m.v.SetDefault("features", []string{})
	m.v.SetDefault("json_report", "reports/summary.json")
	m.v.SetDefault("verbose", false)
	m.v.SetDefault("transport", "http")

	// Client defaults
	m.v.SetDefault("client.timeout", "10s")
	m.v.SetDefault("client.breaker_failures", 5)

	// Polling defaults for list_changed checks
	m.v.SetDefault("poll.attempts", 3)
	m.v.SetDefault("poll.interval", "200ms")

	// History and publishing are disabled unless configured
	m.v.SetDefault("history.driver", "")
	m.v.SetDefault("history.dsn", "")
	m.v.SetDefault("publish.redis_url", "")
	m.v.SetDefault("publish.channel", "mcp-compliance:reports")
	m.v.SetDefault("publish.history_key", "mcp-compliance:history")
	m.v.SetDefault("publish.history_length", 100)

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "text")
	m.v.SetDefault("logging.output", "stderr")

	// Mock server defaults
	m.v.SetDefault("mock.host", "127.0.0.1")
	m.v.SetDefault("mock.port", 8000)
	m.v.SetDefault("mock.page_size", 2)
	m.v.SetDefault("mock.rate_limit_per_minute", 30)
	m.v.SetDefault("mock.slow_delay", "2s")
	m.v.SetDefault("mock.subscription_capacity", 1024)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Levels returns the parsed level allow-list
func (m *Manager) Levels() ([]domain.Level, error) {
	return domain.ParseLevels(strings.Join(m.config.Levels, ","))
}

// ValidateRunner validates the settings needed to run the conformance suite
func (m *Manager) ValidateRunner() error {
	config := m.config

	if strings.TrimSpace(config.ServerURL) == "" {
		return domain.NewValidationError("server_url", "is required (flag --server-url or MCP_SERVER_URL)", config.ServerURL)
	}
	if !strings.HasPrefix(config.ServerURL, "http://") && !strings.HasPrefix(config.ServerURL, "https://") &&
		!strings.HasPrefix(config.ServerURL, "ws://") && !strings.HasPrefix(config.ServerURL, "wss://") {
		return domain.NewValidationError("server_url", "must be an http(s) or ws(s) URL", config.ServerURL)
	}
	if _, err := m.Levels(); err != nil {
		return err
	}
	if config.Transport != "http" && config.Transport != "websocket" {
		return domain.NewValidationError("transport", "must be http or websocket", config.Transport)
	}
	if config.Client.Timeout <= 0 {
		return domain.NewValidationError("client.timeout", "must be positive", config.Client.Timeout)
	}
	if config.Poll.Attempts < 1 {
		return domain.NewValidationError("poll.attempts", "must be at least 1", config.Poll.Attempts)
	}
	switch config.History.Driver {
	case "", "sqlite", "postgres":
	default:
		return domain.NewValidationError("history.driver", "must be sqlite or postgres", config.History.Driver)
	}
	if config.History.Driver != "" && config.History.DSN == "" {
		return domain.NewValidationError("history.dsn", "is required when a history driver is set", config.History.DSN)
	}

	return m.validateLogging()
}

// ValidateMock validates the mock server settings
func (m *Manager) ValidateMock() error {
	mock := m.config.Mock
	if mock.Port <= 0 || mock.Port > 65535 {
		return fmt.Errorf("invalid mock server port: %d", mock.Port)
	}
	if mock.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", mock.PageSize)
	}
	if mock.RateLimitPerMinute < 1 {
		return fmt.Errorf("invalid rate limit: %d", mock.RateLimitPerMinute)
	}
	if mock.SubscriptionCapacity < 1 {
		return fmt.Errorf("invalid subscription capacity: %d", mock.SubscriptionCapacity)
	}
	return m.validateLogging()
}

func (m *Manager) validateLogging() error {
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(m.config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", m.config.Logging.Level)
	}
	return nil
}
