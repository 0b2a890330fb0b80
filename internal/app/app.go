// Package app wires stores, caches and brokers into the services both
// binaries run.
package app

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	"github.com/ariefcatur/go-bike-configurator/internal/config"
	"github.com/ariefcatur/go-bike-configurator/internal/configurator"
	"github.com/ariefcatur/go-bike-configurator/internal/httpx"
	kafkax "github.com/ariefcatur/go-bike-configurator/internal/kafka"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/memstore"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
	"github.com/ariefcatur/go-bike-configurator/internal/payment"
	"github.com/ariefcatur/go-bike-configurator/internal/postgres"
	"github.com/ariefcatur/go-bike-configurator/internal/queue"
	"github.com/ariefcatur/go-bike-configurator/internal/redisx"
	"github.com/ariefcatur/go-bike-configurator/internal/worker"
)

type App struct {
	Cfg config.Config
	Log zerolog.Logger

	DB       *pgxpool.Pool // nil with the memory driver
	Redis    *redis.Client
	Producer *kafkax.Producer
	Queue    *queue.Client

	CatalogStore catalog.Store
	LedgerStore  ledger.Store
	Orders       orders.Repository

	Catalog  *catalog.Service
	Resolver *configurator.Resolver
	Ledger   *ledger.Ledger
	Checkout *checkout.Service

	started bool
}

// New connects to the configured backends and builds the services. Close
// releases them.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		db := memstore.New()
		a.CatalogStore, a.LedgerStore, a.Orders = db.Catalog(), db.Ledger(), db.Orders()
		log.Warn().Msg("memory store driver: state is lost on restart")
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.DB = pool
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		a.CatalogStore = &catalog.Repo{DB: pool}
		a.LedgerStore = &ledger.Repo{DB: pool}
		a.Orders = &orders.Repo{DB: pool}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	a.Redis = redisx.New(cfg.RedisAddr)
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, caches will miss")
	}
	a.Producer = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.With().Str("component", "kafka-producer").Logger())
	a.Queue = queue.NewClient(cfg.RedisAddr)

	snapshots := &catalog.CachedSnapshots{
		Source: a.CatalogStore,
		Redis:  a.Redis,
		TTL:    cfg.CatalogCacheTTL,
		Log:    log,
	}
	publisher := &orders.Publisher{Producer: a.Producer, Service: cfg.ServiceName}

	a.Catalog = catalog.NewService(a.CatalogStore, snapshots, log.With().Str("component", "catalog").Logger())
	a.Resolver = configurator.NewResolver(snapshots, cfg.Currency)
	a.Ledger = ledger.New(a.LedgerStore, log.With().Str("component", "ledger").Logger())
	a.Checkout = checkout.NewService(checkout.Deps{
		Resolver:  a.Resolver,
		Ledger:    a.Ledger,
		Orders:    a.Orders,
		Gateway:   &payment.EventGateway{Events: publisher},
		Events:    publisher,
		Scheduler: a.Queue,
		Idem:      &redisx.Idempotency{R: a.Redis},
		Status:    &redisx.StatusCache{R: a.Redis},
		Log:       log.With().Str("component", "checkout").Logger(),
	}, checkout.Options{
		ReservationTTL: cfg.ReservationTTL,
		PaymentTimeout: cfg.PaymentTimeout,
	})
	return a, nil
}

// Start begins background publishing. Call Close to flush it.
func (a *App) Start(ctx context.Context) {
	a.Producer.Start(ctx)
	a.started = true
}

// Router mounts every HTTP handler.
func (a *App) Router() *chi.Mux {
	r := httpx.NewRouter(a.Log)
	(&httpx.CatalogHandler{Catalog: a.CatalogStore, Admin: a.Catalog, Stock: a.Ledger, Pricer: a.Resolver}).Register(r)
	(&httpx.OrdersHandler{Orders: a.Checkout}).Register(r)
	(&httpx.StockHandler{Stock: a.Ledger}).Register(r)
	return r
}

func (a *App) Sweeper() *ledger.Sweeper {
	return &ledger.Sweeper{
		Store:    a.LedgerStore,
		Interval: a.Cfg.SweepInterval,
		Batch:    a.Cfg.SweepBatch,
		Log:      a.Log.With().Str("component", "sweeper").Logger(),
	}
}

// PaymentResults returns the payment.result consumer and its handler.
func (a *App) PaymentResults() (*kafkax.Consumer, kafkax.Handler) {
	log := a.Log.With().Str("component", "payment-results").Logger()
	c := kafkax.NewConsumer(a.Cfg.KafkaBrokers, a.Cfg.PaymentGroup, orders.TopicPaymentResult, a.Cfg.WorkerConcurrency, log)
	h := &payment.ResultConsumer{
		Settler: a.Checkout,
		Dedup:   &redisx.Dedup{R: a.Redis, Service: "payment"},
		Log:     log,
	}
	return c, h.Handle
}

func (a *App) Worker() (*worker.Service, error) {
	log := a.Log.With().Str("component", "worker").Logger()
	return worker.NewService(a.Cfg.RedisAddr, a.Cfg.WorkerConcurrency, &worker.Consumer{Orders: a.Checkout, Log: log}, log)
}

// Close flushes the producer and releases connections.
func (a *App) Close() {
	a.Producer.Close()
	if a.started {
		a.Producer.WaitClosed()
	}
	if err := a.Queue.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("queue client close")
	}
	if err := a.Redis.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("redis close")
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
