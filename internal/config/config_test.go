package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RateLimitRPS != 20 {
		t.Errorf("Server.RateLimitRPS = %d, want 20", cfg.Server.RateLimitRPS)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Ledger.Key != "minerState" {
		t.Errorf("Ledger.Key = %q, want minerState", cfg.Ledger.Key)
	}
	if cfg.Ledger.SettleInterval != 5*time.Second {
		t.Errorf("Ledger.SettleInterval = %v, want 5s", cfg.Ledger.SettleInterval)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 720h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Secret != "" {
		t.Error("auth should be disabled by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_fileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minerd.yaml")
	yaml := []byte(`
server:
  port: 9090
store:
  driver: memory
ledger:
  settle_interval: 1s
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEDGER_KEY", "device-7")

	cfg, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Error("expected config file to be found")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Driver != config.DriverMemory {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Ledger.SettleInterval != time.Second {
		t.Errorf("Ledger.SettleInterval = %v, want 1s", cfg.Ledger.SettleInterval)
	}
	if cfg.Ledger.Key != "device-7" {
		t.Errorf("Ledger.Key = %q, want env override device-7", cfg.Ledger.Key)
	}
}

func TestLoad_rejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")
	t.Chdir(t.TempDir())

	if _, _, err := config.Load(""); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"port", func(c *config.Config) { c.Server.Port = 0 }},
		{"postgres without url", func(c *config.Config) { c.Store.Driver = config.DriverPostgres; c.Database.URL = "" }},
		{"empty key", func(c *config.Config) { c.Ledger.Key = "" }},
		{"zero interval", func(c *config.Config) { c.Ledger.SettleInterval = 0 }},
		{"short secret", func(c *config.Config) { c.Auth.Secret = "abc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
