// File: app/app.go
package app

import (
	"context"
	"go-ledger-engine/config"
	"go-ledger-engine/db"
	"go-ledger-engine/logger"
	"go-ledger-engine/queue"
	"go-ledger-engine/repository"
	"go-ledger-engine/router"
	"go-ledger-engine/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.WithField("instance_id", uuid.NewString()).Info("Ledger engine starting")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	// The status cache is an optimization over the idempotency guard's table
	// read; the engine runs fine without it.
	var statusCache *service.StatusCache
	if redisClient, err := db.ConnectRedis(); err != nil {
		logger.Log.WithError(err).Warn("Running without the transfer status cache")
	} else {
		defer redisClient.Close()
		statusCache = service.NewStatusCache(redisClient)
	}

	cfg := config.AppConfig

	publisher := queue.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
	defer publisher.Close()

	accountRepo := repository.NewAccountRepository(database)
	transferRepo := repository.NewTransferRepository(database)
	entryRepo := repository.NewLedgerEntryRepository(database)

	lockTimeout := time.Duration(cfg.Processing.LockTimeoutMS) * time.Millisecond
	transferService := service.NewTransferService(
		database, accountRepo, transferRepo, entryRepo, publisher, statusCache, lockTimeout)

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CommandTopic, transferService)
	defer consumer.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Run(consumerCtx)
	}()

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.NewRouter(),
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
		stopConsumer()
		if err := <-consumerErr; err != nil {
			logger.Log.WithError(err).Error("Command consumer exited with error")
		}
	case err := <-consumerErr:
		if err != nil {
			logger.Log.WithError(err).Error("Command consumer exited with error")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Engine exited properly")
}
