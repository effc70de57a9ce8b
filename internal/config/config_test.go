package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
env: production
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
catalog:
  path: data/questions.yaml
kiosk:
  question_seconds: 15
  welcome_delay: 2s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("LEADERBOARD_LIMIT", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "production" || cfg.Server.Port != "9090" {
		t.Fatalf("unexpected base config %+v", cfg)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Fatalf("expected env override, got %q", cfg.Redis.Addr)
	}
	if cfg.Leaderboard.Limit != 10 || cfg.Kiosk.QuestionSeconds != 15 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if TTLDuration(cfg.Kiosk.WelcomeDelay, time.Second) != 2*time.Second {
		t.Fatalf("expected welcome delay 2s")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Leaderboard.Limit != 20 || cfg.Kiosk.QuestionSeconds != 20 || cfg.Catalog.Path != "questions.json" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
	if got := TTLDuration("1200ms", time.Minute); got != 1200*time.Millisecond {
		t.Fatalf("expected parsed duration, got %s", got)
	}
}
