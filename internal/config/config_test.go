package config

import (
	"strings"
	"testing"
	"time"
)

const testKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func TestLoad_RequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when BACKEND_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Errorf("expected default backend timeout 15s, got %s", cfg.BackendTimeout)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("expected default session ttl 8h, got %s", cfg.SessionTTL)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("expected default max conns 10, got %d", cfg.DBMaxConns)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Error("database and redis should be optional")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://hospital.example")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.SessionTTL)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.RateLimitRPS)
	}
}

func TestLoad_CORSOriginsList(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://hospital.example")
	tests := []struct {
		raw  string
		want string
	}{
		{"https://a.example", "https://a.example"},
		{"https://a.example,https://b.example", "https://a.example|https://b.example"},
		{"https://a.example , https://b.example,, ", "https://a.example|https://b.example"},
		{"https://a.example, https://b.example, https://c.example", "https://a.example|https://b.example|https://c.example"},
	}
	for _, tt := range tests {
		t.Setenv("CORS_ORIGINS", tt.raw)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if got := strings.Join(cfg.CORSOrigins, "|"); got != tt.want {
			t.Errorf("CORS_ORIGINS=%q: got %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_SessionKey(t *testing.T) {
	dev := &Config{Env: "development"}
	k1, err := dev.SessionKey()
	if err != nil || len(k1) != 32 {
		t.Fatalf("expected generated key, got %d bytes, %v", len(k1), err)
	}

	prod := &Config{Env: "production"}
	if _, err := prod.SessionKey(); err == nil {
		t.Error("expected error for missing key in production")
	}

	prod.SessionSigningKey = "not-hex"
	if _, err := prod.SessionKey(); err == nil {
		t.Error("expected error for invalid hex")
	}

	prod.SessionSigningKey = "abcd"
	if _, err := prod.SessionKey(); err == nil {
		t.Error("expected error for short key")
	}

	prod.SessionSigningKey = testKey
	if k, err := prod.SessionKey(); err != nil || len(k) != 32 {
		t.Errorf("expected 32-byte key, got %d, %v", len(k), err)
	}
}

func validConfig() *Config {
	return &Config{
		Env:               "production",
		BackendURL:        "https://hospital.example",
		BackendTimeout:    15 * time.Second,
		SessionSigningKey: testKey,
		SessionTTL:        8 * time.Hour,
		DBMaxConns:        10,
		DBMinConns:        2,
		CORSOrigins:       []string{"https://screens.example"},
		RateLimitRPS:      20,
		RateLimitBurst:    40,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"relative backend", func(c *Config) { c.BackendURL = "/api" }, true},
		{"plain http in production", func(c *Config) { c.BackendURL = "http://hospital.example" }, true},
		{"plain http in development", func(c *Config) { c.Env = "development"; c.BackendURL = "http://localhost:5000" }, false},
		{"missing key", func(c *Config) { c.SessionSigningKey = "" }, true},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, true},
		{"min above max", func(c *Config) { c.DBMinConns = 20 }, true},
		{"no rate limit", func(c *Config) { c.RateLimitBurst = 0 }, true},
		{"wildcard cors", func(c *Config) { c.CORSOrigins = []string{"*"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
