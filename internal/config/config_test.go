package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PORT", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("BUS_BACKEND", "")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Auth.TokenTTL != 72*time.Hour {
		t.Fatalf("expected 72h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Bus.Backend != "local" {
		t.Fatalf("expected local bus, got %q", cfg.Bus.Backend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("APP_URL", "https://hub.example.com/")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.Auth.TokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if !cfg.Storage.MinioUseSSL {
		t.Fatal("expected minio ssl enabled")
	}
	if cfg.AppURL != "https://hub.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.AppURL)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("PORT", "eighty")
	t.Setenv("PASSWORD_RESET_TTL", "-5m")

	cfg := Load()
	if cfg.Port != 8080 {
		t.Fatalf("expected fallback port, got %d", cfg.Port)
	}
	if cfg.Auth.PasswordResetTTL != 30*time.Minute {
		t.Fatalf("expected fallback reset ttl, got %s", cfg.Auth.PasswordResetTTL)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		Host: "db", Port: 5433, User: "hub", Password: "p@ss", DBName: "market", SSLMode: "require",
	}}
	got := cfg.PostgresURL()
	if !strings.HasPrefix(got, "postgres://hub:p%40ss@db:5433/market") {
		t.Fatalf("unexpected url %q", got)
	}
	if !strings.Contains(got, "sslmode=require") {
		t.Fatalf("missing sslmode in %q", got)
	}
}
