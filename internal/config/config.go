package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	LogFile     string // optional rotating log file

	StorageBackend string
	RedisURL       string
	SQLitePath     string
	SpeakersFile   string

	// Script holds the settings used when a request does not carry its own.
	Script dialogue.ScriptSettings
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:        os.Getenv("LOG_FILE"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite)),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/dialogue.db"),
		SpeakersFile:   getEnv("SPEAKERS_FILE", "./data/speakers.yaml"),
	}

	switch cfg.StorageBackend {
	case BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: expected %s or %s", cfg.StorageBackend, BackendRedis, BackendSQLite)
	}

	defaults := dialogue.DefaultSettings()
	cfg.Script.Name = getEnv("SCRIPT_NAME", defaults.Name)

	var err error
	if cfg.Script.InitialSpan, err = getEnvInt("SCRIPT_INITIAL_SPAN", defaults.InitialSpan); err != nil {
		return nil, err
	}
	if cfg.Script.CharacterMultiplier, err = getEnvInt("SCRIPT_CHARACTER_MULTIPLIER", defaults.CharacterMultiplier); err != nil {
		return nil, err
	}
	if cfg.Script.MinimalSpan, err = getEnvInt("SCRIPT_MINIMAL_SPAN", defaults.MinimalSpan); err != nil {
		return nil, err
	}
	if cfg.Script.Increment, err = getEnvInt("SCRIPT_INCREMENT", defaults.Increment); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: cannot be negative", key, value)
	}
	return n, nil
}
