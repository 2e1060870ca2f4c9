package config

import (
	"errors"
	"fmt"
)

const minJWTSecretLength = 16

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d is out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return errors.New("server.shutdown_timeout_seconds must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) must be at least %d characters", minJWTSecretLength)
	}
	if c.Auth.TokenTTLHours <= 0 {
		return errors.New("auth.token_ttl_hours must be positive")
	}
	if (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == "") {
		return errors.New("github.client_id and github.client_secret must be set together")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate_limit.requests_per_minute must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit.burst must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
}
