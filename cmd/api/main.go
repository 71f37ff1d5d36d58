package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retail-platform/inventory-service/internal/application"
	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/internal/infrastructure/config"
	mongoRepo "github.com/retail-platform/inventory-service/internal/infrastructure/mongodb"
	"github.com/retail-platform/inventory-service/pkg/cloudevents"
	"github.com/retail-platform/inventory-service/pkg/errors"
	"github.com/retail-platform/inventory-service/pkg/kafka"
	"github.com/retail-platform/inventory-service/pkg/logging"
	"github.com/retail-platform/inventory-service/pkg/metrics"
	"github.com/retail-platform/inventory-service/pkg/middleware"
	"github.com/retail-platform/inventory-service/pkg/mongodb"
	"github.com/retail-platform/inventory-service/pkg/outbox"
	outboxMongo "github.com/retail-platform/inventory-service/pkg/outbox/mongodb"
	"github.com/retail-platform/inventory-service/pkg/tracing"
)

const serviceName = "inventory-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory-service API")

	cfg := loadConfig()
	ctx := context.Background()

	settings, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("Failed to load settings")
		os.Exit(1)
	}

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	producer := kafka.NewProductionProducer(cfg.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceInventory)

	db := mongoClient.Database()
	inventoryRepo := mongoRepo.NewInventoryRepository(db, m)
	reservationRepo := mongoRepo.NewReservationRepository(db)
	movementRepo := mongoRepo.NewMovementRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create outbox indexes")
	}

	store := mongoRepo.NewStore(inventoryRepo, reservationRepo, movementRepo, outboxRepo, eventFactory)
	txManager := mongoRepo.NewTransactionManager(mongoClient)

	outboxPublisher := outbox.NewPublisher(outboxRepo, producer, logger, m, &outbox.PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// The catalog link check is disabled until the catalog service exposes
	// its link endpoint; deletes are then guarded by reservations and
	// movements only
	service := application.NewInventoryService(
		inventoryRepo,
		reservationRepo,
		movementRepo,
		store,
		txManager,
		settings,
		nil,
		logger,
		m,
	)

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
	if err := sweeper.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start reservation sweeper")
		os.Exit(1)
	}
	defer sweeper.Stop()
	logger.Info("Reservation sweeper started", "intervalSeconds", settings.SweepInterval())

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		inventories := api.Group("/inventories")
		{
			inventories.POST("", createInventoryHandler(service, logger))
			inventories.GET("", listInventoriesHandler(service, logger))
			inventories.GET("/low-stock", lowStockHandler(service, logger))
			inventories.GET("/id/:inventoryId", getByIDHandler(service, logger))

			inventories.GET("/:itemType/:itemId", getInventoryHandler(service, logger))
			inventories.DELETE("/:itemType/:itemId", deleteInventoryHandler(service, logger))
			inventories.POST("/:itemType/:itemId/restore", restoreInventoryHandler(service, logger))
			inventories.POST("/:itemType/:itemId/reserve", reserveHandler(service, logger))
			inventories.POST("/:itemType/:itemId/adjust", adjustHandler(service, logger))
			inventories.GET("/:itemType/:itemId/availability", availabilityHandler(service, logger))
			inventories.GET("/:itemType/:itemId/movements", movementsHandler(service, logger))
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("/consolidate/:operationId", consolidateHandler(service, logger))
			reservations.POST("/:reservationId/release", releaseHandler(service, logger))
			reservations.POST("/sweep", sweepHandler(sweeper))
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8008"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "retail_inventory"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mapDomainError translates domain errors into API errors
func mapDomainError(err error) *errors.AppError {
	var insufficient *domain.InsufficientStockError
	if stderrors.As(err, &insufficient) {
		return errors.ErrBusinessRule("insufficient stock").WithDetails(map[string]string{
			"available": strconv.Itoa(insufficient.Available),
			"requested": strconv.Itoa(insufficient.Requested),
		})
	}

	switch {
	case stderrors.Is(err, domain.ErrNotFound):
		return errors.ErrNotFound("inventory").Wrap(err)
	case stderrors.Is(err, domain.ErrDuplicate):
		return errors.ErrConflict("inventory record already exists for this item")
	case stderrors.Is(err, domain.ErrOptimisticLock):
		return errors.ErrConflict("concurrent modification, retry the operation").
			WithDetail("retryable", "true")
	case stderrors.Is(err, domain.ErrInvalidState):
		return errors.ErrConflict(err.Error())
	case stderrors.Is(err, domain.ErrHasDependencies):
		return errors.ErrBusinessRule(err.Error())
	case stderrors.Is(err, domain.ErrZeroQuantity), stderrors.Is(err, domain.ErrNegativeQuantity):
		return errors.ErrValidation(err.Error())
	default:
		return errors.FromError(err)
	}
}

func respond(c *gin.Context, logger *logging.Logger, err error) {
	middleware.NewErrorResponder(c, logger.Logger).RespondWithAppError(mapDomainError(err))
}

func createInventoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ItemType        string `json:"itemType" binding:"required,item_type"`
			ItemID          string `json:"itemId" binding:"required,item_id"`
			Location        string `json:"location" binding:"omitempty,safe_string"`
			InitialQuantity int    `json:"initialQuantity" binding:"gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			middleware.AbortWithAppError(c, appErr)
			return
		}

		dto, err := service.CreateInventory(c.Request.Context(), application.CreateInventoryCommand{
			ItemType:        req.ItemType,
			ItemID:          req.ItemID,
			Location:        req.Location,
			InitialQuantity: req.InitialQuantity,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, dto)
	}
}

func getInventoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto, err := service.GetByItem(c.Request.Context(), application.GetByItemQuery{
			ItemType:       c.Param("itemType"),
			ItemID:         c.Param("itemId"),
			IncludeDeleted: c.Query("includeDeleted") == "true",
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func getByIDHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto, err := service.GetByID(c.Request.Context(), application.GetByIDQuery{
			InventoryID: c.Param("inventoryId"),
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func reserveHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Quantity      int    `json:"quantity" binding:"required,gt=0"`
			OperationID   string `json:"operationId" binding:"required,safe_string"`
			OperationType string `json:"operationType" binding:"required,operation_type"`
			ActorType     string `json:"actorType" binding:"required,actor_type"`
			ActorID       string `json:"actorId" binding:"required,safe_string"`
			LeaseSeconds  int    `json:"leaseSeconds" binding:"gte=0"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			middleware.AbortWithAppError(c, appErr)
			return
		}

		dto, err := service.Reserve(c.Request.Context(), application.ReserveCommand{
			ItemType:      c.Param("itemType"),
			ItemID:        c.Param("itemId"),
			Quantity:      req.Quantity,
			OperationID:   req.OperationID,
			OperationType: req.OperationType,
			ActorType:     req.ActorType,
			ActorID:       req.ActorID,
			LeaseSeconds:  req.LeaseSeconds,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, dto)
	}
}

func adjustHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Delta      int    `json:"delta" binding:"required"`
			EmployeeID string `json:"employeeId" binding:"required,safe_string"`
			Intent     string `json:"intent" binding:"required,safe_string"`
			Notes      string `json:"notes" binding:"omitempty,safe_string"`
		}
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			middleware.AbortWithAppError(c, appErr)
			return
		}

		dto, err := service.Adjust(c.Request.Context(), application.AdjustCommand{
			ItemType:   c.Param("itemType"),
			ItemID:     c.Param("itemId"),
			Delta:      req.Delta,
			EmployeeID: req.EmployeeID,
			Intent:     req.Intent,
			Notes:      req.Notes,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func availabilityHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
		if err != nil || quantity <= 0 {
			middleware.AbortWithAppError(c, errors.ErrValidation("quantity must be a positive integer"))
			return
		}

		dto, err := service.CheckAvailability(c.Request.Context(), application.CheckAvailabilityQuery{
			ItemType: c.Param("itemType"),
			ItemID:   c.Param("itemId"),
			Quantity: quantity,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func movementsHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		movements, err := service.ListMovements(c.Request.Context(), application.ListMovementsQuery{
			ItemType: c.Param("itemType"),
			ItemID:   c.Param("itemId"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
	}
}

func consolidateHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.ConsolidateByOperation(c.Request.Context(), application.ConsolidateByOperationCommand{
			OperationID: c.Param("operationId"),
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func releaseHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto, err := service.ReleaseReservation(c.Request.Context(), application.ReleaseReservationCommand{
			ReservationID: c.Param("reservationId"),
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func sweepHandler(sweeper *application.ReservationSweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		sweeper.Sweep(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"stats": sweeper.Stats()})
	}
}

func deleteInventoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := service.Delete(c.Request.Context(), application.DeleteInventoryCommand{
			ItemType: c.Param("itemType"),
			ItemID:   c.Param("itemId"),
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func restoreInventoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto, err := service.Restore(c.Request.Context(), application.RestoreInventoryCommand{
			ItemType: c.Param("itemType"),
			ItemID:   c.Param("itemId"),
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func listInventoriesHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		dtos, err := service.ListInventories(c.Request.Context(), application.ListInventoriesQuery{
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"inventories": dtos, "count": len(dtos)})
	}
}

func lowStockHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

		dtos, err := service.DetectLowStock(c.Request.Context(), application.DetectLowStockQuery{Limit: limit})
		if err != nil {
			respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"inventories": dtos, "count": len(dtos)})
	}
}
