package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"slide-capture/internal/adapter"
	"slide-capture/internal/cache"
	"slide-capture/internal/config"
	"slide-capture/internal/domain"
	"slide-capture/internal/handler"
	"slide-capture/internal/logger"
	"slide-capture/internal/metrics"
	"slide-capture/internal/middleware"
	"slide-capture/internal/repository"
	"slide-capture/internal/service"
	"slide-capture/internal/util"
	"slide-capture/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Metrics
	var collector *metrics.Collector
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		collector = metrics.New(cfg.Metrics.Namespace)
		registry.MustRegister(collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// Authored decks
	validator := validation.NewValidator()
	decks, err := repository.NewDeckRepository(cfg.Deck.Dir, validator)
	if err != nil {
		appLogger.Fatal("Failed to load decks", zap.String("dir", cfg.Deck.Dir), zap.Error(err))
	}

	// Sinks: every configured transport receives each response
	var sinks []domain.ResponseSink
	var memorySink *adapter.MemorySink
	if cfg.Events.MemoryBuffer > 0 {
		memorySink = adapter.NewMemorySink(cfg.Events.MemoryBuffer)
		sinks = append(sinks, memorySink)
		appLogger.Info("MemorySink initialized", zap.Int("capacity", cfg.Events.MemoryBuffer))
	}

	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		sinks = append(sinks, adapter.NewRedisStreamSink(redisClient, cfg.Redis.StreamMaxLen))
		appLogger.Info("RedisStreamSink initialized", zap.String("address", cfg.Redis.Address))
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher, err := adapter.NewKafkaPublisher(cfg.Events)
		if err != nil {
			appLogger.Fatal("Failed to create Kafka publisher", zap.Error(err))
		}
		watermillSink := adapter.NewWatermillSink(publisher, cfg.Events.Topic)
		defer watermillSink.Close()
		sinks = append(sinks, watermillSink)
		appLogger.Info("WatermillSink initialized", zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.Topic))
	}

	// Optional image archive
	var imageStore domain.ImageStore
	if cfg.Storage.Endpoint != "" {
		store, err := adapter.NewMinioImageStore(cfg.Storage)
		if err != nil {
			appLogger.Fatal("Failed to create image store", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			appLogger.Fatal("Failed to prepare image bucket", zap.Error(err))
		}
		imageStore = store
		appLogger.Info("MinioImageStore initialized", zap.String("bucket", cfg.Storage.Bucket))
	}

	// Optional student identity
	var authService service.AuthService
	if cfg.Auth.JWTSecret != "" {
		authService, err = service.NewAuthService(cfg.Auth)
		if err != nil {
			appLogger.Fatal("Failed to create AuthService", zap.Error(err))
		}
		appLogger.Info("AuthService initialized")
	}

	if len(sinks) == 0 {
		appLogger.Warn("No response sink configured; responses are recorded but not delivered")
	}

	// Mounted scopes, with idle ones swept in the background
	scopes := service.NewScopeRegistry()
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go scopes.RunSweeper(sweepCtx, cfg.Session.IdleTTL, cfg.Session.SweepInterval)

	// Initialize services
	captureService := service.NewCaptureService(service.CaptureDeps{
		Decks:      decks,
		Registry:   scopes,
		Recorder:   service.NewResponseRecorder(util.NewMonotonicClock(nil), collector),
		Sink:       adapter.NewFanoutSink(sinks...),
		Normalizer: service.NewImageNormalizer(service.NormalizerOptionsFromConfig(cfg.Normalizer), collector),
		Store:      imageStore,
		Validator:  validator,
	})
	interactionHandler := handler.NewInteractionHandler(captureService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(middleware.OptionalAuth(authService))
	app.Use(middleware.RequestLogger())

	app.Get("/healthz", interactionHandler.Health)
	if cfg.Metrics.Enabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	interactionHandler.RegisterRoutes(app.Group("/api"), middleware.NewValidationMiddleware(validator))

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopSweeper()
	if memorySink != nil {
		appLogger.Info("Server exited gracefully", zap.Int("responses_in_memory", memorySink.Len()))
		return
	}
	appLogger.Info("Server exited gracefully")
}
