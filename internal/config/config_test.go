package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
)

func setHealthcheckRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TR_USER", "user")
	t.Setenv("TR_PASS", "pass")
	t.Setenv("GLUETUN_USER", "admin")
	t.Setenv("GLUETUN_PASS", "secret")
	t.Setenv("HC_URL", "https://hc-ping.com/uuid")
}

func TestHealthcheck_Defaults(t *testing.T) {
	setHealthcheckRequired(t)

	var cfg Healthcheck
	if err := envconfig.Process("", &cfg); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.TrHost != "localhost" || cfg.TrPort != 9091 {
		t.Fatalf("transmission defaults: %s:%d", cfg.TrHost, cfg.TrPort)
	}
	if cfg.GluetunHost != "localhost" || cfg.GluetunPort != 8000 {
		t.Fatalf("gluetun defaults: %s:%d", cfg.GluetunHost, cfg.GluetunPort)
	}
	if cfg.Interval() != 300*time.Second {
		t.Fatalf("default interval: %v", cfg.Interval())
	}
	if cfg.PortcheckURL != "https://portcheck.transmissionbt.com" {
		t.Fatalf("portcheck url: %q", cfg.PortcheckURL)
	}
}

func TestHealthcheck_MissingCredentialIsAnError(t *testing.T) {
	setHealthcheckRequired(t)
	t.Setenv("TR_USER", "")

	var cfg Healthcheck
	if err := envconfig.Process("", &cfg); err == nil {
		t.Fatal("expected a configuration error for the missing credential")
	}
}

func TestIPWatcher_Defaults(t *testing.T) {
	t.Setenv("IPW_UPDATE_URL", "https://dyn.example.net")

	var cfg IPWatcher
	if err := envconfig.Process("", &cfg); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Interval() != 300*time.Second {
		t.Fatalf("normal interval: %v", cfg.Interval())
	}
	if cfg.ErrorInterval() != 60*time.Second {
		t.Fatalf("error interval: %v", cfg.ErrorInterval())
	}
	if cfg.RateLimitInterval() != 900*time.Second {
		t.Fatalf("rate-limit interval: %v", cfg.RateLimitInterval())
	}
	if cfg.IdentifierEnv != "IPW_IDENTIFIER" {
		t.Fatalf("identifier env name: %q", cfg.IdentifierEnv)
	}
	if len(cfg.Providers) != 4 {
		t.Fatalf("default provider rotation: %v", cfg.Providers)
	}
}

func TestIPWatcher_ProviderListOverride(t *testing.T) {
	t.Setenv("IPW_UPDATE_URL", "https://dyn.example.net")
	t.Setenv("IPW_PROVIDERS", "https://a.example/ip,https://b.example/ip")

	var cfg IPWatcher
	if err := envconfig.Process("", &cfg); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0] != "https://a.example/ip" {
		t.Fatalf("providers: %v", cfg.Providers)
	}
}
