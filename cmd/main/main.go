package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"stock-reconciliation-service/internal/config"
	"stock-reconciliation-service/internal/events"
	"stock-reconciliation-service/internal/handlers"
	"stock-reconciliation-service/internal/middleware"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
	"stock-reconciliation-service/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Location{},
		&models.StockLevel{},
		&models.MovementRecord{},
		&models.IdempotencyKey{},
		&models.StockAdjustment{},
		&models.AdjustmentLine{},
		&models.CycleCountSession{},
		&models.CycleCountLine{},
		&models.TransferRequest{},
		&models.TransferLine{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis stock level cache (optional)
	redisClient := config.InitRedis(cfg)
	if redisClient == nil {
		log.Println("REDIS_ADDR not configured, stock level cache disabled")
	}

	// Initialize NATS event publisher (optional - graceful degradation if NATS unavailable)
	var eventPublisher *events.ReconciliationEventPublisher
	if cfg.NATSURL != "" {
		eventPublisher, err = events.NewReconciliationEventPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
		} else {
			log.Println("Connected to NATS JetStream for event publishing")
			defer eventPublisher.Close()
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(db, redisClient)
	adjustmentRepo := repository.NewAdjustmentRepository(db, ledgerRepo)
	cycleCountRepo := repository.NewCycleCountRepository(db)
	transferRepo := repository.NewTransferRepository(db, ledgerRepo)
	locationRepo := repository.NewLocationRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Initialize the coordinator
	coordinator := services.NewCoordinator(
		ledgerRepo,
		adjustmentRepo,
		cycleCountRepo,
		transferRepo,
		locationRepo,
		idempotencyRepo,
		eventPublisher,
		logger,
	)

	// Initialize handlers
	adjustmentHandler := handlers.NewAdjustmentHandler(coordinator)
	cycleCountHandler := handlers.NewCycleCountHandler(coordinator)
	transferHandler := handlers.NewTransferHandler(coordinator)
	stockHandler := handlers.NewStockHandler(coordinator)
	exportHandler := handlers.NewExportHandler(coordinator)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API routes
	api := router.Group("/api/v1")
	api.Use(middleware.ActorMiddleware())

	// Stock ledger routes
	stock := api.Group("/stock")
	{
		stock.GET("", stockHandler.ListStockLevels)
		stock.GET("/low", stockHandler.GetLowStock)
		stock.GET("/:location/:productId", stockHandler.GetStockLevel)
		stock.PUT("/policy", middleware.RequireRole("supervisor"), stockHandler.UpdateStockPolicy)
		stock.PUT("/reservations", stockHandler.SetReservation)
	}

	// Movement audit trail routes
	movements := api.Group("/movements")
	{
		movements.GET("", stockHandler.ListMovements)
		movements.GET("/export", exportHandler.ExportMovements)
		movements.GET("/operations/:operationId", stockHandler.GetOperationMovements)
	}

	// Location registry routes
	locations := api.Group("/locations")
	{
		locations.GET("", stockHandler.ListLocations)
		locations.POST("/sync", middleware.RequireRole("supervisor"), stockHandler.SyncLocations)
	}

	// Stock adjustment routes; approval decisions need the supervisor role
	adjustments := api.Group("/adjustments")
	{
		adjustments.POST("", adjustmentHandler.SubmitAdjustment)
		adjustments.GET("", adjustmentHandler.ListAdjustments)
		adjustments.GET("/:id", adjustmentHandler.GetAdjustment)
		adjustments.POST("/:id/approve", middleware.RequireRole("supervisor"), adjustmentHandler.ApproveAdjustment)
		adjustments.POST("/:id/reject", middleware.RequireRole("supervisor"), adjustmentHandler.RejectAdjustment)
		adjustments.POST("/:id/cancel", adjustmentHandler.CancelAdjustment)
	}

	// Cycle count routes; full sessions with system quantities are
	// supervisor-only while counters work against the blind projection
	cycleCounts := api.Group("/cycle-counts")
	{
		cycleCounts.POST("", middleware.RequireRole("supervisor"), cycleCountHandler.CreateCycleCount)
		cycleCounts.GET("", cycleCountHandler.ListCycleCounts)
		cycleCounts.GET("/:id", cycleCountHandler.GetCycleCount)
		cycleCounts.GET("/:id/review", middleware.RequireRole("supervisor"), cycleCountHandler.ReviewCycleCount)
		cycleCounts.GET("/:id/sheet", exportHandler.ExportCountSheet)
		cycleCounts.POST("/:id/counts", cycleCountHandler.RecordCount)
		cycleCounts.POST("/:id/import", exportHandler.ImportCounts)
		cycleCounts.POST("/:id/complete", middleware.RequireRole("supervisor"), cycleCountHandler.CompleteCycleCount)
		cycleCounts.GET("/:id/variances", middleware.RequireRole("supervisor"), cycleCountHandler.GetVarianceReport)
		cycleCounts.POST("/:id/cancel", middleware.RequireRole("supervisor"), cycleCountHandler.CancelCycleCount)
		cycleCounts.POST("/:id/convert", middleware.RequireRole("supervisor"), cycleCountHandler.ConvertCycleCount)
	}

	// Transfer routes
	transfers := api.Group("/transfers")
	{
		transfers.POST("", transferHandler.CreateTransfer)
		transfers.GET("", transferHandler.ListTransfers)
		transfers.GET("/:id", transferHandler.GetTransfer)
		transfers.POST("/:id/ship", transferHandler.ShipTransfer)
		transfers.POST("/:id/receipts", transferHandler.RecordReceipt)
		transfers.POST("/:id/complete", transferHandler.CompleteTransfer)
		transfers.POST("/:id/cancel", transferHandler.CancelTransfer)
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Stock reconciliation service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down stock-reconciliation-service...")

	log.Println("Stock reconciliation service stopped")
}
