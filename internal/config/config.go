package config

import (
	"fmt"
	"os"
	"time"

	"rutosms/internal/constants"
	"rutosms/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingRouterUsername = models.ConfigError{Message: "missing router username"}
	ErrMissingRouterPassword = models.ConfigError{Message: "missing router password"}
	ErrMissingBrokerURL      = models.ConfigError{Message: "missing MQTT broker URL"}
)

// LoadConfig reads, overrides and validates the YAML configuration at path.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Router.Username == "" {
		return ErrMissingRouterUsername
	}
	if c.Router.Password == "" {
		return ErrMissingRouterPassword
	}
	if c.MQTT.BrokerURL == "" {
		return ErrMissingBrokerURL
	}

	if c.Router.Host == "" {
		c.Router.Host = constants.DefaultRouterHost
	}
	if c.Router.Port <= 0 {
		c.Router.Port = constants.DefaultRouterPort
	}
	if c.Router.TimeoutSec <= 0 {
		c.Router.TimeoutSec = constants.DefaultRouterTimeoutSec
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "rutosms"
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return models.ConfigError{Message: fmt.Sprintf("invalid MQTT QoS %d, must be 0, 1 or 2", c.MQTT.QoS)}
	}
	if c.MQTT.KeepAliveSec <= 0 {
		c.MQTT.KeepAliveSec = constants.DefaultMQTTKeepAliveSec
	}

	if c.PollIntervalSec <= 0 {
		c.PollIntervalSec = constants.DefaultPollIntervalSec
	}

	if c.DeleteAfter != "" {
		retention, err := time.ParseDuration(c.DeleteAfter)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid delete_after %q: %v", c.DeleteAfter, err)}
		}
		if retention <= 0 {
			return models.ConfigError{Message: fmt.Sprintf("delete_after must be positive, got %q", c.DeleteAfter)}
		}
		c.DeleteAfterDuration = retention
	}

	// Port 0 means "use the default"; -1 disables the status server.
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	return nil
}

// applyEnvironmentOverrides lets credentials live outside the config file.
func applyEnvironmentOverrides(c *models.Config) {
	if host := os.Getenv("RUTOSMS_ROUTER_HOST"); host != "" {
		c.Router.Host = host
	}
	if user := os.Getenv("RUTOSMS_ROUTER_USERNAME"); user != "" {
		c.Router.Username = user
	}
	if pass := os.Getenv("RUTOSMS_ROUTER_PASSWORD"); pass != "" {
		c.Router.Password = pass
	}
	if url := os.Getenv("RUTOSMS_MQTT_BROKER_URL"); url != "" {
		c.MQTT.BrokerURL = url
	}
	if user := os.Getenv("RUTOSMS_MQTT_USERNAME"); user != "" {
		c.MQTT.Username = user
	}
	if pass := os.Getenv("RUTOSMS_MQTT_PASSWORD"); pass != "" {
		c.MQTT.Password = pass
	}
}
