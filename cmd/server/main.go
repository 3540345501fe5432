// Package main is the entry point for the library catalog server.
//
// main stays minimal: load configuration, build the logger, make sure the
// database directory exists and hand everything to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/library-catalog/internal/config"
	"github.com/sakif/library-catalog/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env is optional; real environment variables win over it.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.SessionSecretGenerated {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}
	if !cfg.SecureCookies {
		logger.Warn("SECURE_COOKIES is off; enable it when serving over HTTPS")
	}

	// === 3. DATABASE DIRECTORY ===
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. SERVE ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
