package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"

	_ "github.com/lib/pq"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "", "Migrations directory (defaults to database.migrations_dir)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Database.Driver != "postgres" {
		logging.Fatal().Str("driver", cfg.Database.Driver).Msg("SQL migrations only apply to postgres; sqlite is auto-migrated at startup")
	}

	// DATABASE_URL wins over the discrete settings, as on hosted platforms.
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.Database.URL()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	migrationsDir := cfg.Database.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}
	m := database.NewMigrator(db, migrationsDir)
	ctx := context.Background()

	if *rollback {
		name, err := m.Rollback(ctx)
		if errors.Is(err, database.ErrNoMigrations) {
			logging.Info().Msg("no migrations to rollback")
			return
		}
		if err != nil {
			logging.Fatal().Err(err).Msg("rollback failed")
		}
		logging.Info().Str("migration", name).Msg("successfully rolled back migration")
		return
	}

	applied, err := m.Up(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("migration failed")
	}
	logging.Info().Strs("applied", applied).Msg("all migrations applied successfully")
}
