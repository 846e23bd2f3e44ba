package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/wichananm65/pet-shop-orders/internal/cart"
	"github.com/wichananm65/pet-shop-orders/internal/config"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/cache"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/database/postgres"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/logging"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/upstream"
	"github.com/wichananm65/pet-shop-orders/internal/interface/http/router"
	"github.com/wichananm65/pet-shop-orders/internal/notify"
	"github.com/wichananm65/pet-shop-orders/internal/order"
	"github.com/wichananm65/pet-shop-orders/internal/product"
	"github.com/wichananm65/pet-shop-orders/internal/refund"
	"github.com/wichananm65/pet-shop-orders/internal/session"
	"github.com/wichananm65/pet-shop-orders/internal/wallet"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	checks := map[string]router.Check{}

	// Sessions are written by the auth service, so Redis is required in every mode.
	rdb, err := cache.NewRedisClient(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	checks["redis"] = redisCheck(rdb)

	var (
		orders  order.Repository
		refunds refund.Repository
		catalog product.Catalog
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory order storage; data is lost on restart")
		orders = order.NewInMemoryRepository()
		refunds = refund.NewInMemoryRepository()
		catalog = product.NewInMemoryRepository(nil)
	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		checks["postgres"] = dbCheck(db)
		orders = order.NewPostgresRepository(db, cfg.DBTimeout)
		refunds = refund.NewPostgresRepository(db, cfg.DBTimeout)
		catalog = product.NewPostgresRepository(db, cfg.ProductTimeout)
	default:
		return fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	if cfg.ProductServiceURL != "" {
		catalog = product.NewHTTPCatalog(upstream.New(upstream.Config{
			Name:    "product-service",
			BaseURL: cfg.ProductServiceURL,
			Timeout: cfg.ProductTimeout,
		}))
	}

	var depositor wallet.Depositor
	if cfg.WalletServiceURL != "" {
		depositor = wallet.NewHTTPClient(upstream.New(upstream.Config{
			Name:    "wallet-service",
			BaseURL: cfg.WalletServiceURL,
			Timeout: cfg.WalletTimeout,
		}), cfg.JWTSecret)
	} else {
		log.Warn("WALLET_SERVICE_URL not set; refunds credit an in-process ledger")
		depositor = wallet.NewInMemoryLedger()
	}

	bus := notify.NewBus(log.Named("notify"))
	bus.Subscribe(notify.NewEmailSubscriber(notify.NewLogMailer(log.Named("mail"))))
	if len(cfg.KafkaBrokers) > 0 {
		w := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.OrderEventsTopic)
		defer w.Close()
		bus.Subscribe(notify.NewKafkaSubscriber(w, 0))
	}

	sessions := session.NewRedisStore(rdb)
	carts := cart.NewRedisStore(rdb, cfg.CartTTL)

	cartService := cart.NewService(sessions, carts, catalog, log.Named("cart"))
	orderService := order.NewService(order.Dependencies{
		Sessions:    sessions,
		Orders:      orders,
		Carts:       carts,
		Catalog:     catalog,
		Idempotency: order.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL, cfg.CheckoutLease),
		Publisher:   bus,
		Logger:      log.Named("order"),
	})
	refundService := refund.NewService(orderService, refunds, depositor, log.Named("refund"))

	app := router.New(router.Options{Logger: log.Named("http"), Checks: checks},
		cart.NewHandler(cartService),
		order.NewHandler(orderService),
		refund.NewHandler(refundService),
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage))
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func redisCheck(client *redis.Client) router.Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func dbCheck(db *sql.DB) router.Check {
	return db.PingContext
}
