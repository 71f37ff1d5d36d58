package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retail-platform/inventory-service/internal/application"
	"github.com/retail-platform/inventory-service/internal/infrastructure/config"
	mongoRepo "github.com/retail-platform/inventory-service/internal/infrastructure/mongodb"
	"github.com/retail-platform/inventory-service/pkg/cloudevents"
	"github.com/retail-platform/inventory-service/pkg/logging"
	"github.com/retail-platform/inventory-service/pkg/metrics"
	"github.com/retail-platform/inventory-service/pkg/mongodb"
	outboxMongo "github.com/retail-platform/inventory-service/pkg/outbox/mongodb"
)

// Standalone reservation sweeper. Runs the same reclaim pass as the API
// process; useful as a cron job or when the API is scaled to zero. Expired
// reservations produce outbox events, so a running outbox publisher is
// still needed to get them onto the broker.

var (
	mongoURI = flag.String("mongo-uri", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	dbName   = flag.String("db", envOr("MONGODB_DATABASE", "retail_inventory"), "Database name")
	once     = flag.Bool("once", false, "Run a single sweep pass and exit")
)

func main() {
	flag.Parse()

	logger := logging.New(logging.DefaultConfig("inventory-sweeper"))
	logger.SetDefault()

	settings, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("Failed to load settings")
		os.Exit(1)
	}

	ctx := context.Background()
	mongoClient, err := mongodb.NewClient(ctx, &mongodb.Config{
		URI:            *mongoURI,
		Database:       *dbName,
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)

	m := metrics.New(metrics.DefaultConfig("inventory-sweeper"))
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceInventory)

	db := mongoClient.Database()
	inventoryRepo := mongoRepo.NewInventoryRepository(db, m)
	reservationRepo := mongoRepo.NewReservationRepository(db)
	movementRepo := mongoRepo.NewMovementRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	store := mongoRepo.NewStore(inventoryRepo, reservationRepo, movementRepo, outboxRepo, eventFactory)
	txManager := mongoRepo.NewTransactionManager(mongoClient)

	sweeper := application.NewReservationSweeper(
		inventoryRepo,
		reservationRepo,
		store,
		txManager,
		logger,
		m,
		&application.SweeperConfig{
			Interval:  time.Duration(settings.SweepInterval()) * time.Second,
			BatchSize: settings.SweepBatchSize(),
		},
	)

	if *once {
		sweeper.Sweep(ctx)
		stats := sweeper.Stats()
		logger.Info("Sweep pass complete", "reclaimed", stats["reclaimed"], "failed", stats["failed"])
		return
	}

	if err := sweeper.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start sweeper")
		os.Exit(1)
	}
	logger.Info("Sweeper started", "intervalSeconds", settings.SweepInterval())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := sweeper.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop sweeper")
	}
	logger.Info("Sweeper stopped")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
