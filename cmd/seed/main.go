package main

import (
	"context"
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/app"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/config"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-seed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	created, err := catalog.SeedBicycle(ctx, a.Catalog, a.CatalogStore)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	if !created {
		log.Info().Str("product_id", catalog.BicycleID).Msg("catalog already seeded")
		return
	}
	log.Info().Str("product_id", catalog.BicycleID).Msg("catalog seeded")
}
