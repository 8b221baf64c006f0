package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/internal/api/handlers"
	"github.com/slspinola/bee2waste-sub002/internal/application"
	"github.com/slspinola/bee2waste-sub002/internal/config"
	infrakafka "github.com/slspinola/bee2waste-sub002/internal/infrastructure/kafka"
	"github.com/slspinola/bee2waste-sub002/internal/infrastructure/labels"
	inframongo "github.com/slspinola/bee2waste-sub002/internal/infrastructure/mongodb"
	"github.com/slspinola/bee2waste-sub002/internal/infrastructure/projections"
	"github.com/slspinola/bee2waste-sub002/pkg/cloudevents"
	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
	"github.com/slspinola/bee2waste-sub002/pkg/middleware"
	"github.com/slspinola/bee2waste-sub002/pkg/mongodb"
	"github.com/slspinola/bee2waste-sub002/pkg/outbox"
	"github.com/slspinola/bee2waste-sub002/pkg/tracing"
)

const serviceName = "intake-service"

type appConfig struct {
	Port           string
	GinMode        string
	MongoURI       string
	MongoDatabase  string
	KafkaBrokers   []string
	ParkConfigPath string
	LabelURL       string
	TracingEnabled bool
	OTLPEndpoint   string
	Environment    string
}

func loadConfig() *appConfig {
	return &appConfig{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", gin.ReleaseMode),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "ecopark_intake"),
		KafkaBrokers:   strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		ParkConfigPath: getEnv("PARK_CONFIG_PATH", ""),
		LabelURL:       getEnv("LABEL_SERVICE_URL", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func main() {
	cfg := loadConfig()

	logger := logging.NewFromEnv(serviceName)
	logging.SetDefault(logger)
	logger.Info("Starting intake service", "environment", cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Enabled = cfg.TracingEnabled
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracingCfg.Environment = cfg.Environment
	tracerProvider, err := tracing.Initialize(ctx, tracingCfg)
	if err != nil {
		logger.Error("Failed to initialise tracing", "error", err.Error())
		os.Exit(1)
	}
	defer tracerProvider.Shutdown(context.Background())

	m := metrics.New(serviceName)

	// Park intake policy
	parkCfg, err := config.Load(cfg.ParkConfigPath)
	if err != nil {
		logger.Error("Failed to load park config", "error", err.Error())
		os.Exit(1)
	}

	// MongoDB
	mongoCfg := mongodb.DefaultConfig()
	mongoCfg.URI = cfg.MongoURI
	mongoCfg.Database = cfg.MongoDatabase
	mongoClient, err := mongodb.NewClient(ctx, mongoCfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err.Error())
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database()

	// Kafka
	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = cfg.KafkaBrokers
	producer := kafka.NewProducer(kafkaCfg)
	defer producer.Close()
	consumer := kafka.NewConsumer(kafkaCfg, logger)
	defer consumer.Close()

	// Repositories and projections
	eventFactory := cloudevents.NewEventFactory("/ecopark/" + serviceName)
	zoneStockProjection := projections.NewZoneStockProjection(db)
	entryRepo := inframongo.NewWasteEntryRepository(db, eventFactory)
	zoneRepo := inframongo.NewStorageZoneRepository(db, eventFactory)
	lotRepo := inframongo.NewLotRepository(db, eventFactory)
	movementRepo := inframongo.NewStockMovementRepository(db, eventFactory, zoneStockProjection)
	ticketRepo := inframongo.NewNonConformityRepository(db, eventFactory)
	allocator := inframongo.NewAllocator(db, zoneRepo, lotRepo, movementRepo)

	// Outbox relay
	publisher := outbox.NewPublisher(entryRepo.GetOutboxRepository(), producer, logger, outbox.PublisherConfig{})
	publisher.Start(ctx)
	defer publisher.Stop()

	// Weighbridge stream
	readingCache := infrakafka.NewReadingCache()
	if _, err := infrakafka.NewWeighbridgeConsumer(consumer, readingCache, logger); err != nil {
		logger.Error("Failed to set up weighbridge consumer", "error", err.Error())
		os.Exit(1)
	}
	consumer.Start(ctx)

	// Label printing is optional per deployment.
	var labelPrinter application.LabelPrinter
	if cfg.LabelURL != "" {
		labelPrinter = labels.NewClient(cfg.LabelURL, logger, m)
	}

	// Services
	storageService := application.NewStorageService(zoneRepo, lotRepo, movementRepo, allocator, m, logger)
	intakeService := application.NewIntakeService(
		entryRepo, ticketRepo, readingCache, storageService, labelPrinter, parkCfg, m, logger)
	ledgerService := application.NewLedgerService(movementRepo, zoneRepo, zoneStockProjection, m, logger)

	// HTTP
	gin.SetMode(cfg.GinMode)
	if err := middleware.InitValidator(); err != nil {
		logger.Error("Failed to register request validators", "error", err.Error())
		os.Exit(1)
	}
	router := gin.New()
	middleware.Setup(router, middleware.SetupConfig{
		ServiceName: serviceName,
		Logger:      logger,
		Metrics:     m,
	})

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, map[string]middleware.HealthChecker{
		"mongodb": mongoClient.HealthCheck,
	}))
	router.GET("/metrics", middleware.MetricsHandler(m))

	v1 := router.Group("/api/v1")
	handlers.NewEntryHandlers(intakeService, logger).RegisterRoutes(v1)
	handlers.NewStorageHandlers(storageService, logger).RegisterRoutes(v1)
	handlers.NewLedgerHandlers(ledgerService, logger).RegisterRoutes(v1)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err.Error())
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err.Error())
	}
	logger.Info("Intake service stopped")
}
