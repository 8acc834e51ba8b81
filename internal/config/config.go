// Package config loads server settings from the environment.
//
// Values come from process environment variables; a .env file in the
// working directory, if present, fills in variables that are not already
// set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	Port     int    `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Storage  Storage  `envPrefix:"STORAGE_"`
	AWS      AWS
	SendGrid SendGrid
	GitHub   GitHub

	// LoginRateLimit is the number of auth requests per second allowed
	// from one client address.
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"`

	// MaxCredentialUsers caps how many users are read when building the
	// credential set. Exceeding it is an error, not a silent truncation.
	MaxCredentialUsers int `env:"MAX_CREDENTIAL_USERS" envDefault:"10000"`
}

type Storage struct {
	Driver     string `env:"DRIVER"      envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/connection-points.db"`
}

type AWS struct {
	Region           string `env:"AWS_REGION"            envDefault:"us-east-1"`
	AccessKeyID      string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`
}

type SendGrid struct {
	APIKey    string `env:"SENDGRID_API_KEY"`
	FromEmail string `env:"SENDGRID_FROM_EMAIL"`
}

type GitHub struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Enabled reports whether GitHub sign-in should be offered.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads .env (if any) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return finish(&cfg)
}

// LoadFrom builds a Config from the given variables only. Used by tests.
func LoadFrom(environment map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: LOG_LEVEL %q must be debug, info, warn or error", c.LogLevel)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: STORAGE_SQLITE_PATH is required for the sqlite driver")
		}
	case DriverDynamoDB:
		if c.AWS.Region == "" {
			return errors.New("config: AWS_REGION is required for the dynamodb driver")
		}
		if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
			return errors.New("config: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("config: LOGIN_RATE_LIMIT must be positive")
	}
	if c.MaxCredentialUsers <= 0 {
		return errors.New("config: MAX_CREDENTIAL_USERS must be positive")
	}
	return nil
}
