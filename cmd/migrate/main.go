package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/recomarket/recomarket-backend/internal/infrastructure/config"
)

func main() {
	var (
		direction = flag.String("direction", "up", "migration direction: up, down")
		steps     = flag.Int("steps", 0, "number of migrations to apply (0 = all)")
		source    = flag.String("source", "file://migrations", "migration source")
	)
	flag.Parse()

	if err := run(*direction, *steps, *source); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(direction string, steps int, source string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("database url not configured (set RECO_DATABASE_URL)")
	}

	m, err := migrate.New(source, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read version: %w", err)
	}

	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}
