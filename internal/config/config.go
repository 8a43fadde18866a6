package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/qlabel/internal/discover"
)

type Config struct {
	Port string

	// Auth for the HTTP API; empty disables it.
	APIKey string

	// Input selection
	Root    string
	Pattern string

	// Labeling
	Strict bool
	DryRun bool

	// Driver
	Workers int

	// Upload limits
	MaxUploadBytes int64

	LogLevel string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("QLABEL_API_KEY"),

		Root:    envOr("QLABEL_ROOT", "."),
		Pattern: envOr("QLABEL_PATTERN", discover.DefaultPattern),

		Strict: envBool("QLABEL_STRICT", false),
		DryRun: envBool("QLABEL_DRY_RUN", false),

		Workers: envInt("QLABEL_WORKERS", 1),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 5242880), // 5MB

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5242880
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Pattern == "" {
		return fmt.Errorf("QLABEL_PATTERN is required")
	}
	if _, err := discover.Compile(c.Pattern); err != nil {
		return fmt.Errorf("QLABEL_PATTERN: %w", err)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("QLABEL_WORKERS must be positive, got %d", c.Workers)
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
