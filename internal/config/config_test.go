package config

import (
	"testing"
	"time"
)

var configKeys = []string{
	"HTTP_ADDR", "WS_ADDR", "REDIS_URL", "DATABASE_URL", "REPLAY_MESSAGES_DIR",
	"REPLAY_SESSION_TTL", "REPLAY_MAX_SESSIONS", "REPLAY_POSITION_CACHE",
	"REPLAY_SWEEP_INTERVAL", "REPLAY_RECENT_LIMIT", "RENDER_SQUARE_SIZE", "RENDER_FLIP",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.WSAddr != ":8081" {
		t.Fatalf("unexpected addrs: %s %s", cfg.HTTPAddr, cfg.WSAddr)
	}
	if cfg.SessionTTL() != 30*time.Minute || cfg.MaxSessions != 500 || !cfg.PositionCache {
		t.Fatalf("unexpected session defaults: %+v", cfg)
	}
	if cfg.RenderSquareSize != 72 || cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("REPLAY_SESSION_TTL", "60")
	t.Setenv("REPLAY_MAX_SESSIONS", "3")
	t.Setenv("REPLAY_POSITION_CACHE", "false")
	t.Setenv("REPLAY_SWEEP_INTERVAL", "5s")
	t.Setenv("REDIS_URL", " redis://localhost:6379/0 ")
	t.Setenv("RENDER_SQUARE_SIZE", "48")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.SessionTTLSec != 60 || cfg.MaxSessions != 3 || cfg.PositionCache {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SweepInterval != 5*time.Second || cfg.RedisURL != "redis://localhost:6379/0" || cfg.RenderSquareSize != 48 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_IgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPLAY_MAX_SESSIONS", "-2")
	t.Setenv("REPLAY_SESSION_TTL", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSessions != 500 || cfg.SessionTTLSec != 1800 {
		t.Fatalf("invalid values should keep defaults: %+v", cfg)
	}
}

func TestLoad_Rejects(t *testing.T) {
	clearEnv(t)
	t.Setenv("RENDER_SQUARE_SIZE", "4")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for tiny square size")
	}

	clearEnv(t)
	t.Setenv("RENDER_SQUARE_SIZE", "big")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric square size")
	}

	clearEnv(t)
	t.Setenv("WS_ADDR", ":8080")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for shared listen address")
	}
}
