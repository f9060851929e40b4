package main

import (
	"context"
	"flag"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/seed"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	ingredients := flag.String("ingredients", "", "Ingredients file (.csv or .json)")
	tags := flag.String("tags", "", "Tags file (.json)")
	flag.Parse()

	if *ingredients == "" && *tags == "" {
		flag.Usage()
		logging.Fatal().Msg("nothing to load: pass -ingredients and/or -tags")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	if *ingredients != "" {
		items, err := seed.LoadIngredients(*ingredients)
		if err != nil {
			logging.Fatal().Err(err).Str("file", *ingredients).Msg("failed to read ingredients")
		}
		n, err := catalog.ImportIngredients(ctx, items)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to import ingredients")
		}
		logging.Info().Int("read", len(items)).Int64("inserted", n).Msg("ingredients loaded")
	}

	if *tags != "" {
		items, err := seed.LoadTags(*tags)
		if err != nil {
			logging.Fatal().Err(err).Str("file", *tags).Msg("failed to read tags")
		}
		n, err := catalog.ImportTags(ctx, items)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to import tags")
		}
		logging.Info().Int("read", len(items)).Int64("inserted", n).Msg("tags loaded")
	}
}
