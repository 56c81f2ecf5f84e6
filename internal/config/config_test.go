package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/peerconnect?sslmode=disable")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.StatsWorkers != 4 || cfg.StatsQueueSize != 256 {
		t.Fatalf("unexpected dispatcher defaults %d/%d", cfg.StatsWorkers, cfg.StatsQueueSize)
	}
	if cfg.StatsCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl %v", cfg.StatsCacheTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.StorageEnabled() || cfg.IsProduction() {
		t.Fatal("storage and production mode should be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("S3_BUCKET", "attachments")
	t.Setenv("S3_REGION", "eu-central-1")
	t.Setenv("STATS_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.AllowedOrigins)
	}
	if !cfg.StorageEnabled() || cfg.S3.Region != "eu-central-1" {
		t.Fatalf("unexpected s3 config %+v", cfg.S3)
	}
	if cfg.StatsWorkers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.StatsWorkers)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/peerconnect")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	setRequired(t)
	t.Setenv("STATS_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}
