package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{
		Record: Record{
			ZoneID: "Z1",
			Name:   "host.example.com",
			Type:   "A",
			TTL:    300,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid A record", nil, false},
		{"valid AAAA record", func(c *Config) { c.Record.Type = "AAAA" }, false},
		{"missing zone", func(c *Config) { c.Record.ZoneID = "" }, true},
		{"missing name", func(c *Config) { c.Record.Name = "" }, true},
		{"bad record type", func(c *Config) { c.Record.Type = "CNAME" }, true},
		{"lowercase record type", func(c *Config) { c.Record.Type = "a" }, true},
		{"negative ttl", func(c *Config) { c.Record.TTL = -1 }, true},
		{"zero ttl allowed", func(c *Config) { c.Record.TTL = 0 }, false},
		{"negative poll count", func(c *Config) { c.Update.PollCount = -1 }, true},
		{"unknown backend", func(c *Config) { c.Authority.Backend = "gandi" }, true},
		{"cloudflare backend", func(c *Config) { c.Authority.Backend = "cloudflare" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("Expected ErrInvalidConfiguration; got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Record.Type != "A" {
		t.Errorf("Expected default record type A; got %q", cfg.Record.Type)
	}
	if cfg.Record.TTL != 300 {
		t.Errorf("Expected default ttl 300; got %d", cfg.Record.TTL)
	}
	if len(cfg.Resolve.Services) == 0 {
		t.Error("Expected default lookup services")
	}
	if cfg.Update.PollInterval != 10*time.Second {
		t.Errorf("Expected default poll interval 10s; got %s", cfg.Update.PollInterval)
	}
	if cfg.Authority.Backend != "route53" {
		t.Errorf("Expected default backend route53; got %q", cfg.Authority.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
record:
  zoneId: Z1
  name: host.example.com
  type: AAAA
  ttl: 600
update:
  forceRemote: true
  pollCount: 5
authority:
  backend: cloudflare
  token: secret
cacheDir: /var/cache/aws-ddns
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Record.Type != "AAAA" || cfg.Record.TTL != 600 {
		t.Errorf("Unexpected record config: %+v", cfg.Record)
	}
	if !cfg.Update.ForceRemote || cfg.Update.PollCount != 5 {
		t.Errorf("Unexpected update config: %+v", cfg.Update)
	}
	if cfg.Authority.Backend != "cloudflare" || cfg.Authority.Token != "secret" {
		t.Errorf("Unexpected authority config: %+v", cfg.Authority)
	}
	if cfg.CacheDir != "/var/cache/aws-ddns" {
		t.Errorf("Unexpected cache dir: %q", cfg.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %s", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AWS_DDNS_ZONE_ID", "Z2")
	t.Setenv("AWS_DDNS_RECORD_NAME", "other.example.com")
	t.Setenv("AWS_DDNS_TTL", "120")
	t.Setenv("AWS_DDNS_FORCE_REMOTE", "true")
	t.Setenv("AWS_DDNS_POLL_COUNT", "7")
	t.Setenv("AWS_DDNS_BACKEND", "cloudflare")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.Record.ZoneID != "Z2" || cfg.Record.Name != "other.example.com" {
		t.Errorf("Env record overrides not applied: %+v", cfg.Record)
	}
	if cfg.Record.TTL != 120 {
		t.Errorf("Expected ttl 120; got %d", cfg.Record.TTL)
	}
	if !cfg.Update.ForceRemote || cfg.Update.PollCount != 7 {
		t.Errorf("Env update overrides not applied: %+v", cfg.Update)
	}
	if cfg.Authority.Backend != "cloudflare" {
		t.Errorf("Expected backend cloudflare; got %q", cfg.Authority.Backend)
	}
}

func TestIdentityNormalization(t *testing.T) {
	cfg := validConfig()
	id := cfg.Identity()
	if id.Name != "host.example.com." {
		t.Errorf("Expected trailing dot; got %q", id.Name)
	}

	cfg.Record.Name = "host.example.com."
	if got := cfg.Identity().Name; got != "host.example.com." {
		t.Errorf("Expected single trailing dot; got %q", got)
	}
}
