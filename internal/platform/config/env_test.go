package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"ADDON_DEMO_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ADDON_DEMO_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestAddonsStatus(t *testing.T) {
	tests := []struct {
		name   string
		addons Addons
		want   AddonStatus
	}{
		{
			name:   "nothing configured",
			addons: Addons{},
			want:   AddonStatus{Papertrail: true},
		},
		{
			name: "everything configured",
			addons: Addons{
				DatabaseURL:        "postgres://db",
				RedisURL:           "redis://cache",
				NewRelicLicenseKey: "key",
			},
			want: AddonStatus{Postgres: true, Redis: true, Papertrail: true, NewRelic: true},
		},
		{
			name:   "blank values count as unset",
			addons: Addons{DatabaseURL: "  ", RedisURL: "\t"},
			want:   AddonStatus{Papertrail: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addons.Status(); got != tt.want {
				t.Fatalf("status = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAddonsIsProduction(t *testing.T) {
	if !(Addons{Environment: "Production"}).IsProduction() {
		t.Fatal("expected production environment to be detected")
	}
	if (Addons{Environment: "development"}).IsProduction() {
		t.Fatal("expected development environment not to be production")
	}
}
