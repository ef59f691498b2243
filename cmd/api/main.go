package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-api/internal/core/broker"
	"shop-api/internal/core/cache"
	"shop-api/internal/core/config"
	"shop-api/internal/core/database"
	"shop-api/internal/core/logger"
	"shop-api/internal/core/server"
	orderadapter "shop-api/internal/features/orders/adapters"
	orderhandler "shop-api/internal/features/orders/handler"
	"shop-api/internal/features/orders/ports"
	orderservice "shop-api/internal/features/orders/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// @title Shop Orders API
// @version 1.0
// @description Order placement and lifecycle management with transactional stock control.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{
		Use:   "shop-api",
		Short: "Order placement and lifecycle API",
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cfg)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "apply or roll back the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrations need STORE_DRIVER=%s", config.DriverPostgres)
			}

			changed, err := database.Migrate(databaseSettings(cfg).URL(), database.Direction(args[0]))
			if err != nil {
				return err
			}
			if !changed {
				logger.Get().Info("No change in migration")
				return nil
			}
			logger.Get().Info("Migrated", zap.String("direction", args[0]))
			return nil
		},
	}
}

func bootstrap() (*config.AppConfig, error) {
	cfg, err := config.Load(".")
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return nil, err
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Printf("Failed to init logger: %v", err)
		return nil, err
	}

	logger.Get().Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
	)
	return cfg, nil
}

func serve(cfg *config.AppConfig) error {
	l := logger.Get()
	srv := server.New(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	srv.RegisterHealthCheck("store", store.Ping)

	opts := []orderservice.Option{orderservice.WithCatalogPricing(cfg.Orders.CatalogPricing)}

	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisCache.Close()

		srv.RegisterHealthCheck("cache", redisCache.Ping)
		opts = append(opts, orderservice.WithIdempotency(
			orderadapter.NewCacheIdempotencyStore(redisCache, cfg.Redis.IdempotencyTTL()),
		))
		l.Info("Idempotent placement enabled")
	}

	if brokers := broker.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		publisher, err := broker.NewKafkaPublisher(broker.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.Kafka.OrderTopic,
		})
		if err != nil {
			return err
		}
		defer publisher.Close()

		opts = append(opts, orderservice.WithPublisher(orderadapter.NewBrokerEventPublisher(publisher)))
		l.Info("Publishing order events to Kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.OrderTopic))
	} else {
		opts = append(opts, orderservice.WithPublisher(orderadapter.LogEventPublisher{}))
	}

	orderService := orderservice.NewOrderService(store, opts...)
	orderHandler := orderhandler.NewOrderHandler(orderService)
	orderHandler.RegisterRoutes(srv.App.Group("/api/v1"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			l.Error("Server failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// openStore builds the order store for the configured driver.
func openStore(cfg *config.AppConfig) (ports.OrderStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store := orderadapter.NewMemoryStore()
		for _, p := range orderadapter.DemoCatalog() {
			store.SeedProduct(p, "")
		}
		logger.Get().Warn("Using in-memory order store, data is lost on restart")
		return store, func() {}, nil

	case config.DriverPostgres:
		db, err := database.Open(databaseSettings(cfg))
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		logger.Get().Info("Database connection verified")

		return orderadapter.NewPostgresStore(db), func() {
			if err := database.Close(db); err != nil {
				logger.Get().Warn("Failed to close database", zap.Error(err))
			}
		}, nil

	default:
		return nil, nil, errors.New("unsupported store driver " + cfg.StoreDriver)
	}
}

func databaseSettings(cfg *config.AppConfig) database.Settings {
	return database.Settings{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Name:      cfg.Database.Name,
		SSLMode:   cfg.Database.SSLMode,
		SlowQuery: cfg.Database.SlowQuery(),
	}
}
