// Command migrate inspects and moves the database schema.
//
//	migrate [up|down|status|version]
//
// The server applies pending migrations on start, so "up" is only needed
// when preparing a database ahead of time. DB_PATH (or .env) selects the
// database, as for the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/sakif/library-catalog/internal/config"
	"github.com/sakif/library-catalog/internal/repository/sqlite"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	provider, err := sqlite.NewMigrationProvider(conn)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	logger.Info("running migrations", slog.String("command", command), slog.String("database", cfg.DBPath))

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		for _, r := range results {
			logResult(logger, r)
		}
		logger.Info("migrations completed", slog.Int("applied", len(results)))

	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
		logResult(logger, result)

	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-6d %-30s %s\n", s.Source.Version, filepath.Base(s.Source.Path), applied)
		}

	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("reading version: %w", err)
		}
		fmt.Println(version)

	default:
		return fmt.Errorf("unknown command %q (available: up, down, status, version)", command)
	}

	return nil
}

func logResult(logger *slog.Logger, r *goose.MigrationResult) {
	if r == nil || r.Source == nil {
		return
	}
	logger.Info("migration",
		slog.Int64("version", r.Source.Version),
		slog.String("direction", r.Direction),
		slog.Duration("duration", r.Duration),
	)
}
