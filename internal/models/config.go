package models

import "time"

// Config holds the application configuration
type Config struct {
	Router   RouterConfig  `yaml:"router"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Server   ServerConfig  `yaml:"server"`
	Archive  ArchiveConfig `yaml:"archive"`
	Retry    RetryConfig   `yaml:"retry"`
	LogLevel string        `yaml:"log_level"`

	PollIntervalSec int `yaml:"poll_interval_sec"`

	// DeleteAfter is the retention window as a Go duration string, e.g.
	// "5m" or "24h". Empty disables deferred deletion.
	DeleteAfter string `yaml:"delete_after"`

	// DeleteAfterDuration is the parsed retention window, resolved during
	// config validation. Zero disables deferred deletion.
	DeleteAfterDuration time.Duration `yaml:"-"`
}

// RouterConfig holds the RUTOS device connection settings
type RouterConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MQTTConfig holds the bus connection settings
type MQTTConfig struct {
	BrokerURL    string `yaml:"broker_url"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	QoS          int    `yaml:"qos"`
	KeepAliveSec int    `yaml:"keep_alive_sec"`
}

// ServerConfig holds the status HTTP server settings. A port of -1
// disables the server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ArchiveConfig holds the optional message archive settings. An empty path
// disables archiving.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms"`
	MaxAttempts      int `yaml:"max_attempts"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
