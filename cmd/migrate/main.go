// Command migrate applies the SQL migrations and seeds the first reviewer account.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/config"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/logging"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/seed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel)
	if err := run(context.Background(), cfg, *down, log); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
}

func run(ctx context.Context, cfg config.Config, down bool, log zerolog.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}

	if down {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Info().Msg("migrations rolled back")
		return nil
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")

	pool, err := db.ConnectPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = seed.Reviewer(ctx, pool, cfg.SeedReviewerEmail, cfg.SeedReviewerPassword, log)
	return err
}
