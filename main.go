// main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"event-ticketing/cmd"
	"event-ticketing/internal/data/memstore"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/usecase"
	"event-ticketing/internal/wire"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/database"
	"event-ticketing/pkg/lease"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("store", config.App.StoreDriver),
		zap.Bool("debug", config.App.Debug),
	)

	clk := clock.Real()

	// Storage
	var repos *repository.Repository
	switch config.App.StoreDriver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		repos = memstore.New(clk)
	default:
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	}

	// Optional sweeper lease, shared by every instance
	var locker *lease.Locker
	if config.Redis.URL != "" {
		client, err := database.InitRedis(config.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()

		logger.Info("Redis connected, sweeper lease enabled")
		locker = lease.NewLocker(client, "sweeper")
	}

	service := usecase.NewService(repos, config, clk, usecase.NewLogNotifier(logger), locker, logger)

	// Wire all dependencies
	app := wire.Wiring(service, config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Sweeper.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", config.App.Port))
		return cmd.APIServer(ctx, app.Router, config.App.Port, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}
	logger.Info("Application stopped")
}
