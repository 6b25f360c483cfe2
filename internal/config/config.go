package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	RedisURL    string
	DatabaseURL string

	SessionTTLSec  int
	MaxSessions    int
	PositionCache  bool
	SweepInterval  time.Duration
	RecentLimitMax int

	MessagesDir string

	RenderSquareSize int
	RenderFlip       bool
}

// SessionTTL is the idle time after which a replay session is swept.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:         ":8080",
		WSAddr:           ":8081",
		SessionTTLSec:    1800,
		MaxSessions:      500,
		PositionCache:    true,
		SweepInterval:    time.Minute,
		RecentLimitMax:   50,
		RenderSquareSize: 72,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("REPLAY_MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("REPLAY_SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_MAX_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_POSITION_CACHE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.PositionCache = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_SWEEP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_RECENT_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RecentLimitMax = n
		}
	}

	// Rendering
	if v := strings.TrimSpace(os.Getenv("RENDER_SQUARE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RENDER_SQUARE_SIZE: %w", err)
		}
		cfg.RenderSquareSize = n
	}
	if v := strings.TrimSpace(os.Getenv("RENDER_FLIP")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.RenderFlip = b
		}
	}

	if cfg.RenderSquareSize < 16 || cfg.RenderSquareSize > 256 {
		return nil, fmt.Errorf("RENDER_SQUARE_SIZE must be within [16, 256], got %d", cfg.RenderSquareSize)
	}
	if cfg.HTTPAddr == cfg.WSAddr {
		return nil, fmt.Errorf("HTTP_ADDR and WS_ADDR must differ (%s)", cfg.HTTPAddr)
	}

	return cfg, nil
}
