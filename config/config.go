package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every runtime knob of the API process. Values come from the
// environment (a .env file is honored via godotenv autoload in cmd/api).
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// SweepInterval is how often expired auctions are closed. The 48-hour
	// window itself is fixed business policy, not configuration.
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	// Outbox drain cadence and retry cap for mail delivery.
	OutboxInterval time.Duration `envconfig:"OUTBOX_INTERVAL" default:"5s"`
	OutboxAttempts int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"5"`

	SMTPAddr string `envconfig:"SMTP_ADDR"`
	MailFrom string `envconfig:"MAIL_FROM" default:"noreply@buyshop.com"`

	Environment string `envconfig:"GO_ENV" default:"development"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	return cfg, nil
}
