package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"storefront/internal/auth"
	"storefront/internal/changefeed"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/functions"
	"storefront/internal/httpserver"
	"storefront/internal/localstore"
	addressrepo "storefront/internal/repository/address"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	wishlistrepo "storefront/internal/repository/wishlist"
	addresssvc "storefront/internal/service/address"
	"storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/orders"
	productsvc "storefront/internal/service/product"
	"storefront/internal/session"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.AuthJWTSecret == "" {
		logger.Printf("AUTH_JWT_SECRET is empty; every bearer token will be rejected")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	feed, publisher := openChangeFeed(ctx, cfg, dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, feed, logger)
	if publisher != nil {
		cartRepo = cartrepo.WithPublisher(cartRepo, publisher, logger)
	}
	productRepo := productrepo.NewPostgres(dbpool, logger)
	addressRepo := addressrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	wishlistRepo := wishlistrepo.NewPostgres(dbpool, logger)

	fns := functions.New(functions.Config{
		BaseURL: cfg.FunctionsBaseURL,
		Timeout: cfg.FunctionsTimeout,
	}, logger)

	sessions := session.NewManager(session.Deps{
		Local: func(deviceID string) localstore.Adapter {
			return localstore.NewRedis(rdb, deviceID, logger)
		},
		Carts:     cartRepo,
		Wishlists: wishlistRepo,
		Checkout: checkout.Deps{
			Orders:        orderRepo,
			Addresses:     addressRepo,
			Gateway:       fns,
			Currency:      cfg.Currency,
			DefaultMethod: domain.PaymentMethod(cfg.DefaultPaymentMethod),
			Logger:        logger,
		},
		Verifier: auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer),
		Debounce: cfg.CartDebounce,
		IdleTTL:  cfg.SessionIdleTTL,
		Logger:   logger,
	})
	go sessions.Run(ctx)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:    sessions,
		Products:    productsvc.New(productRepo),
		Addresses:   addresssvc.New(addressRepo, logger),
		Orders:      ordersvc.New(orderRepo, fns, logger),
		Redis:       rdb,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
	if err := sessions.Close(shutdownCtx); err != nil {
		logger.Printf("flush sessions: %v", err)
	}
	stop()
}

// openChangeFeed starts the configured cart change transport. The returned
// publisher is nil when the database announces changes itself.
func openChangeFeed(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) (changefeed.Feed, changefeed.Publisher) {
	switch cfg.ChangeFeed {
	case "kafka":
		k := changefeed.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		go func() {
			k.Run(ctx)
			if err := k.Close(); err != nil {
				logger.Printf("close kafka feed: %v", err)
			}
		}()
		logger.Printf("cart changes via kafka topic=%s group=%s", cfg.KafkaTopic, changefeed.GroupID(cfg.KafkaGroupID))
		return k, k
	case "memory":
		m := changefeed.NewMemory()
		logger.Printf("cart changes in process only")
		return m, m
	default:
		p := changefeed.NewPGNotify(pool, changefeed.DefaultPGChannel, logger)
		go p.Run(ctx)
		logger.Printf("cart changes via postgres channel=%s", changefeed.DefaultPGChannel)
		return p, nil
	}
}
