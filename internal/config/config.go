// Package config loads server configuration from the environment, with an
// optional .env file layered underneath.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	Port   int
	DBPath string

	// SessionSecret signs session tokens. When SESSION_SECRET is unset a
	// random per-process secret is used and SessionSecretGenerated is true;
	// sessions then do not survive a restart.
	SessionSecret          string
	SessionSecretGenerated bool
	SessionTTL             time.Duration
	SessionSweepInterval   time.Duration
	SecureCookies          bool

	BcryptCost int

	// LoginRatePerSec and LoginBurst throttle POST /login and /signup per
	// client IP. A burst of 0 disables throttling.
	LoginRatePerSec float64
	LoginBurst      int

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads the given .env files (default ".env") into the process
// environment, then builds a Config from it. Missing files are ignored;
// variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv builds a Config from environment variables alone.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:    getEnv("DB_PATH", "data/library.db"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = rand.Text() + rand.Text()
		cfg.SessionSecretGenerated = true
	} else if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("config: SESSION_SECRET must be at least 16 characters")
	}

	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("config: SESSION_TTL must be positive")
	}
	if cfg.SessionSweepInterval, err = getDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = getBool("SECURE_COOKIES", false); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("config: BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost)
	}

	if cfg.LoginRatePerSec, err = getFloat("LOGIN_RATE_PER_SEC", 1); err != nil {
		return nil, err
	}
	if cfg.LoginBurst, err = getInt("LOGIN_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.LoginBurst < 0 {
		return nil, fmt.Errorf("config: LOGIN_BURST must not be negative")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// Addr is the listen address for net/http.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}
