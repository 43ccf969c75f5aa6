package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvironmentProduction is the APP_ENV value used by deployed dynos.
const EnvironmentProduction = "production"

// Addons holds the add-on wiring shared by the web and worker processes.
// Every add-on is optional: an empty URL disables the matching integration.
type Addons struct {
	AppName            string `env:"APP_NAME" envDefault:"addon-demo"`
	Environment        string `env:"APP_ENV" envDefault:"development"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	LogDrainURL        string `env:"LOG_DRAIN_URL"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RedisURL           string `env:"REDIS_URL"`
	NewRelicLicenseKey string `env:"NEW_RELIC_LICENSE_KEY"`
}

// AddonStatus reports which add-ons are wired in. The log drain always counts
// as present because the platform forwards stdout to it.
type AddonStatus struct {
	Postgres   bool `json:"postgres"`
	Redis      bool `json:"redis"`
	Papertrail bool `json:"papertrail"`
	NewRelic   bool `json:"newrelic"`
}

// Status summarizes the configured add-ons.
func (a Addons) Status() AddonStatus {
	return AddonStatus{
		Postgres:   strings.TrimSpace(a.DatabaseURL) != "",
		Redis:      strings.TrimSpace(a.RedisURL) != "",
		Papertrail: true,
		NewRelic:   strings.TrimSpace(a.NewRelicLicenseKey) != "",
	}
}

// IsProduction reports whether the process runs in the production environment.
func (a Addons) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(a.Environment), EnvironmentProduction)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
