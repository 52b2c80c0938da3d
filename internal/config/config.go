// Package config loads runtime configuration from the environment (optionally
// seeded from a .env file) and command-line flags.
package config

import (
	"errors"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config contains runtime configuration values.
type Config struct {
	Env         string `envconfig:"APP_ENV" default:"production"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SecretKey   string `envconfig:"SECRET_KEY" required:"true"`

	// Object storage
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	Bucket             string `envconfig:"BUCKET"`
	S3Endpoint         string `envconfig:"S3_ENDPOINT"`
	MaxUploadBytes     int64  `envconfig:"MAX_UPLOAD_BYTES" default:"5242880"`

	// Optional admin account created at startup
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	// Sign-in throttling
	LoginWindow   time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
	LoginMaxFails int           `envconfig:"LOGIN_MAX_FAILS" default:"5"`
	LoginBlockFor time.Duration `envconfig:"LOGIN_BLOCK_FOR" default:"15m"`
}

// Development reports whether APP_ENV selects development mode.
func (c Config) Development() bool { return c.Env == "development" }

// Load reads .env (if present), the environment, then args as flag overrides.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("orgdesk", flag.ContinueOnError)
	fs.StringVar(&c.HTTPAddr, "addr", c.HTTPAddr, "listen address")
	fs.StringVar(&c.DatabaseURL, "dsn", c.DatabaseURL, "PostgreSQL DSN")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if c.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY is required")
	}
	if c.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL (or -dsn) is required")
	}
	if c.MaxUploadBytes <= 0 {
		return Config{}, errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return Config{}, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return c, nil
}
