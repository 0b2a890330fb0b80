package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-bike-configurator/internal/app"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/config"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()
	a.Start(ctx)

	inProcess := cfg.StoreDriver == config.DriverMemory
	if inProcess {
		// memory state is process-local: seed and run the workers here
		if _, err := catalog.SeedBicycle(ctx, a.Catalog, a.CatalogStore); err != nil {
			log.Fatal().Err(err).Msg("seed catalog")
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return a.Sweeper().Run(gctx) })

	if inProcess {
		w, err := a.Worker()
		if err != nil {
			log.Fatal().Err(err).Msg("worker setup")
		}
		g.Go(func() error { return w.Run(gctx) })
		consumer, handle := a.PaymentResults()
		g.Go(func() error { return consumer.Start(gctx, handle) })
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("api stopped with error")
		a.Close()
		os.Exit(1)
	}
}
