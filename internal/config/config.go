// Package config loads server settings from an optional TOML file and the
// environment. Environment variables win over the file, the file wins over
// built-in defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains listener settings.
type Server struct {
	Port                   int `toml:"port"`
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
}

// Database contains the sqlite location.
type Database struct {
	Path string `toml:"path"`
}

// Auth contains token settings.
type Auth struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// GitHub contains OAuth app credentials. Login with GitHub is enabled only
// when both id and secret are set.
type GitHub struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// Redis selects the Redis revocation store when Addr is set.
type Redis struct {
	Addr string `toml:"addr"`
}

// Payments contains gateway credentials.
type Payments struct {
	PaystackSecretKey string `toml:"paystack_secret_key"`
	BaseURL           string `toml:"base_url"`
}

// RateLimit throttles the login and registration endpoints per client IP.
type RateLimit struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

// Logging contains log settings.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the complete server configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Database  Database  `toml:"database"`
	Auth      Auth      `toml:"auth"`
	GitHub    GitHub    `toml:"github"`
	Redis     Redis     `toml:"redis"`
	Payments  Payments  `toml:"payments"`
	RateLimit RateLimit `toml:"rate_limit"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "fitplan.toml"

// Load builds the configuration. An empty path falls back to
// DefaultConfigFile if it exists; an explicit path must exist. It returns
// the config and the file that was read ("" when none was).
func Load(path string) (*Config, string, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, string, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if resolved != "" {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, "", err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return path, nil
	}

	info, err := os.Stat(DefaultConfigFile)
	switch {
	case err == nil && !info.IsDir():
		return DefaultConfigFile, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("stat config: %w", err)
	}
}

// applyEnv overlays the environment variables the deployment uses.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", name, v)
		}
		*dst = n
		return nil
	}

	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := num("TOKEN_TTL_HOURS", &c.Auth.TokenTTLHours); err != nil {
		return err
	}
	str("DB_PATH", &c.Database.Path)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("PAYSTACK_SECRET_KEY", &c.Payments.PaystackSecretKey)
	str("PAYSTACK_BASE_URL", &c.Payments.BaseURL)
	str("LOG_LEVEL", &c.Logging.Level)
	return nil
}

func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.GitHub.CallbackURL == "" {
		c.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Server.Port)
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// TokenTTL is the access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// GitHubEnabled reports whether OAuth login can be offered.
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
