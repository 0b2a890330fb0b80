package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-bike-configurator/internal/app"
	"github.com/ariefcatur/go-bike-configurator/internal/config"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-worker")
	if cfg.StoreDriver == config.DriverMemory {
		log.Fatal().Msg("the worker needs a shared store, run cmd/api alone with STORE_DRIVER=memory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()
	a.Start(ctx)

	w, err := a.Worker()
	if err != nil {
		log.Fatal().Err(err).Msg("worker setup")
	}
	consumer, handle := a.PaymentResults()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return consumer.Start(gctx, handle) })
	g.Go(func() error { return a.Sweeper().Run(gctx) })

	log.Info().Str("group", cfg.PaymentGroup).Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		a.Close()
		os.Exit(1)
	}
	log.Info().Msg("worker stopped")
}
