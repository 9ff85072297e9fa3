// Package config loads process-wide configuration from environment variables.
// Every field has a default so `genhub serve` runs with no environment set.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds runtime configuration for GenHub.
type Config struct {
	DataDir         string        // GENHUB_DATA_DIR: default $XDG_DATA_HOME/genhub or ~/.local/share/genhub
	Addr            string        // GENHUB_ADDR: default "127.0.0.1:7450"
	APISecret       string        // GENHUB_API_SECRET: HMAC secret for session tokens; generated when empty
	TokenTTL        time.Duration // GENHUB_TOKEN_TTL: default 720h
	DispatchTimeout time.Duration // GENHUB_DISPATCH_TIMEOUT: default 120s, 0 disables
	LogLevel        slog.Level    // GENHUB_LOG_LEVEL: default info
	OllamaBaseURL   string        // OLLAMA_BASE_URL: default "http://localhost:11434"
	Development     bool          // DEVELOPMENT: any non-empty value enables dev-only commands
}

const (
	envKeyDataDir         = "GENHUB_DATA_DIR"
	envKeyAddr            = "GENHUB_ADDR"
	envKeyAPISecret       = "GENHUB_API_SECRET"
	envKeyTokenTTL        = "GENHUB_TOKEN_TTL"
	envKeyDispatchTimeout = "GENHUB_DISPATCH_TIMEOUT"
	envKeyLogLevel        = "GENHUB_LOG_LEVEL"
	envKeyOllamaBaseURL   = "OLLAMA_BASE_URL"
	envKeyDevelopment     = "DEVELOPMENT"

	DefaultAddr            = "127.0.0.1:7450"
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultTokenTTL        = 720 * time.Hour
	DefaultDispatchTimeout = 120 * time.Second
)

// Load reads configuration from the environment. Malformed durations or levels
// fall back to defaults and are reported in the returned error; cfg is always usable.
func Load() (Config, error) {
	var problems []string

	cfg := Config{
		DataDir:       envOr(envKeyDataDir, defaultDataDir()),
		Addr:          envOr(envKeyAddr, DefaultAddr),
		APISecret:     os.Getenv(envKeyAPISecret),
		OllamaBaseURL: strings.TrimRight(envOr(envKeyOllamaBaseURL, DefaultOllamaBaseURL), "/"),
		Development:   os.Getenv(envKeyDevelopment) != "",
	}

	var err error
	if cfg.TokenTTL, err = durationOr(envKeyTokenTTL, DefaultTokenTTL); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.DispatchTimeout, err = durationOr(envKeyDispatchTimeout, DefaultDispatchTimeout); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.LogLevel, err = levelOr(envKeyLogLevel, slog.LevelInfo); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// DBPath is the chat database inside DataDir.
func (c Config) DBPath() string { return filepath.Join(c.DataDir, "genhub.db") }

// SettingsPath is the user settings file inside DataDir.
func (c Config) SettingsPath() string { return filepath.Join(c.DataDir, "settings.yaml") }

// KeyPath is the master key that seals stored API keys.
func (c Config) KeyPath() string { return filepath.Join(c.DataDir, "master.key") }

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

func levelOr(key string, fallback slog.Level) (slog.Level, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback, fmt.Errorf("%s=%q is not a valid log level", key, v)
	}
	return lvl, nil
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "genhub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".genhub"
	}
	return filepath.Join(home, ".local", "share", "genhub")
}
