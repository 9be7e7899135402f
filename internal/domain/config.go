package domain

import (
	"time"
)

// Config represents the runner and mock server configuration
type Config struct {
	ServerURL   string        `mapstructure:"server_url"`
	SpecVersion string        `mapstructure:"spec_version"`
	Levels      []string      `mapstructure:"levels"`
	Features    []string      `mapstructure:"features"`
	JSONReport  string        `mapstructure:"json_report"`
	Verbose     bool          `mapstructure:"verbose"`
	Transport   string        `mapstructure:"transport"`
	Client      ClientConfig  `mapstructure:"client"`
	Poll        PollConfig    `mapstructure:"poll"`
	History     HistoryConfig `mapstructure:"history"`
	Publish     PublishConfig `mapstructure:"publish"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Mock        MockConfig    `mapstructure:"mock"`
}

// ClientConfig configures the conformance client
type ClientConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
}

// PollConfig bounds the list-change polling loops
type PollConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

// HistoryConfig selects where finished reports are stored
type HistoryConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PublishConfig configures report publishing to Redis
type PublishConfig struct {
	RedisURL      string `mapstructure:"redis_url"`
	Channel       string `mapstructure:"channel"`
	HistoryKey    string `mapstructure:"history_key"`
	HistoryLength int64  `mapstructure:"history_length"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MockConfig configures the bundled mock server
type MockConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	PageSize             int           `mapstructure:"page_size"`
	RateLimitPerMinute   int           `mapstructure:"rate_limit_per_minute"`
	SlowDelay            time.Duration `mapstructure:"slow_delay"`
	SubscriptionCapacity int           `mapstructure:"subscription_capacity"`
}
