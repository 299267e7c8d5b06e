package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxgrid/pharmacy-discovery/internal/adapters/cache"
	"github.com/rxgrid/pharmacy-discovery/internal/adapters/database"
	"github.com/rxgrid/pharmacy-discovery/internal/adapters/search"
	"github.com/rxgrid/pharmacy-discovery/internal/api/handlers"
	"github.com/rxgrid/pharmacy-discovery/internal/api/routes"
	"github.com/rxgrid/pharmacy-discovery/internal/application/services"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/providers"
	"github.com/rxgrid/pharmacy-discovery/internal/domain/repositories"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/postgres"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/redis"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/clients/typesense"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/notifications"
	"github.com/rxgrid/pharmacy-discovery/internal/infrastructure/observability"
	"github.com/rxgrid/pharmacy-discovery/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	// Initialize Redis client if enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Redis client, continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info().Msg("Redis client initialized")
		}
	}

	// Initialize Typesense client if enabled
	var typesenseClient *typesense.Client
	if cfg.Typesense.Enabled {
		typesenseClient, err = typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Typesense client, falling back to primary store retrieval")
			typesenseClient = nil
		} else {
			logger.Info().Msg("Typesense client initialized")
		}
	}

	// Initialize adapters
	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	basePharmacyAdapter := database.NewPharmacyAdapter(pgClient)

	var pharmacyAdapter repositories.PharmacyRepository
	if cacheProvider != nil {
		pharmacyAdapter = database.NewCachedPharmacyAdapter(basePharmacyAdapter, cacheProvider)
		logger.Info().Msg("pharmacy adapter wrapped with caching layer")
	} else {
		pharmacyAdapter = basePharmacyAdapter
		logger.Info().Msg("pharmacy adapter running without cache")
	}

	inventoryAdapter := database.NewInventoryAdapter(pgClient)
	prescriptionAdapter := database.NewPrescriptionAdapter(pgClient)

	var searchRepo repositories.PharmacySearchRepository
	if typesenseClient != nil {
		adapter := search.NewTypesenseAdapter(typesenseClient, pharmacyAdapter)
		if err := adapter.InitSchema(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to init Typesense schema")
		}
		searchRepo = adapter
	}

	// Initialize the notification dispatcher if a gateway is configured
	var dispatcher providers.NotificationDispatcher
	if cfg.Notifications.WebhookURL != "" {
		dispatcher, err = notifications.NewWebhookDispatcher(&cfg.Notifications)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize notification dispatcher")
		} else {
			logger.Info().Msg("notification dispatcher initialized")
		}
	} else {
		logger.Info().Msg("notification dispatcher disabled (no webhook URL configured)")
	}

	// Initialize services
	scorer, err := services.NewScoringService(services.DefaultScoringConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scoring configuration")
	}
	estimator := services.NewAvailabilityEstimator()
	medicationService := services.NewMedicationService(inventoryAdapter, pharmacyAdapter)

	discoveryService := services.NewDiscoveryService(
		pharmacyAdapter,
		searchRepo,
		scorer,
		estimator,
		medicationService,
		cfg.Discovery.EnrichmentConcurrency,
		cfg.Discovery.DefaultResultLimit,
	)

	recommendationService := services.NewRecommendationService(discoveryService, prescriptionAdapter, pharmacyAdapter)
	coverageService := services.NewCoverageService(pharmacyAdapter)

	var notificationService *services.NotificationService
	if dispatcher != nil {
		notificationService = services.NewNotificationService(pharmacyAdapter, dispatcher)
	}

	// Initialize handlers
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService, medicationService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	coverageHandler := handlers.NewCoverageHandler(coverageService)

	var notificationHandler *handlers.NotificationHandler
	if notificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(notificationService)
	}

	// Set up router
	router := routes.NewRouter(
		discoveryHandler,
		recommendationHandler,
		coverageHandler,
		notificationHandler,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
}
