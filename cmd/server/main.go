package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/vicemeter/backend/internal/application/billing"
	appmetering "github.com/vicemeter/backend/internal/application/metering"
	domainbilling "github.com/vicemeter/backend/internal/domain/billing"
	"github.com/vicemeter/backend/internal/domain/identity"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
	infrabilling "github.com/vicemeter/backend/internal/infrastructure/billing"
	"github.com/vicemeter/backend/internal/infrastructure/cache"
	"github.com/vicemeter/backend/internal/infrastructure/config"
	"github.com/vicemeter/backend/internal/infrastructure/logger"
	"github.com/vicemeter/backend/internal/infrastructure/persistence"
	"github.com/vicemeter/backend/internal/interfaces/http/handler"
	"github.com/vicemeter/backend/internal/interfaces/http/middleware"
	"github.com/vicemeter/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Vicemeter",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Stores: durable when a database is configured, in-memory otherwise
	var (
		db           *persistence.Database
		bucketRepo   metering.BucketRepository
		consentRepo  metering.ConsentRepository
		rolloverRepo metering.RolloverRepository
		sessionRepo  identity.SessionRepository
	)
	if cfg.Database.Enabled {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
		db, err = persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

		bucketRepo = persistence.NewGormBucketRepository(db.DB)
		consentRepo = persistence.NewGormConsentRepository(db.DB)
		rolloverRepo = persistence.NewGormRolloverRepository(db.DB)
		sessionRepo = persistence.NewGormSessionRepository(db.DB)
	} else {
		log.Info("Running on in-memory stores")
		bucketRepo = persistence.NewMemoryBucketRepository()
		consentRepo = persistence.NewMemoryConsentRepository()
		rolloverRepo = persistence.NewMemoryRolloverRepository()
		sessionRepo = persistence.NewMemorySessionRepository()
	}

	// Tick-event deduplication store: Redis when enabled, in-memory fallback
	var dedupeStore shared.IdempotencyStore
	if cfg.Billing.DedupeEnabled {
		if cfg.Redis.Enabled {
			factory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
			dedupeStore, err = factory.CreateStore()
			if err != nil {
				log.Fatal("Failed to create idempotency store", zap.Error(err))
			}
		} else {
			dedupeStore = cache.NewInMemoryIdempotencyStore()
		}
		defer func() {
			if err := dedupeStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
	}

	// Payment processor: optional, previews work without it
	var processor domainbilling.PaymentProcessor
	var provisioner domainbilling.CustomerProvisioner
	if cfg.Stripe.SecretKey != "" {
		stripeCfg := &infrabilling.StripeConfig{
			SecretKey:           cfg.Stripe.SecretKey,
			PublishableKey:      cfg.Stripe.PublishableKey,
			IsTestMode:          cfg.Stripe.IsTestMode,
			DefaultCurrency:     cfg.Stripe.DefaultCurrency,
			StatementDescriptor: cfg.Stripe.StatementDescriptor,
		}
		adapter, err := infrabilling.NewStripeAdapter(stripeCfg, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
		}
		processor = adapter
		provisioner = adapter
		log.Info("Stripe payment processor configured", zap.Bool("test_mode", cfg.Stripe.IsTestMode))
	} else {
		log.Warn("No payment processor configured; settlement charges will be rejected")
	}

	// Application services
	tickService := appmetering.NewTickService(
		bucketRepo,
		sessionRepo,
		metering.NewDefaultCategorizer(),
		dedupeStore,
		shared.IdempotencyConfig{TTL: cfg.Billing.DedupeTTL, Enabled: cfg.Billing.DedupeEnabled},
		log,
	)
	consentService := appmetering.NewConsentService(consentRepo, log)
	snapshotService := appmetering.NewSnapshotService(bucketRepo, log)
	walletService := appbilling.NewWalletService(
		bucketRepo,
		consentRepo,
		rolloverRepo,
		processor,
		provisioner,
		log,
		appbilling.WalletServiceConfig{
			Currency:      cfg.Billing.Currency,
			ChargeTimeout: cfg.Billing.ChargeTimeout,
		},
	)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	middleware.SetupValidator()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health probe outside the API version group
	var healthTarget handler.HealthChecker
	if db != nil {
		healthTarget = db
	}
	systemHandler := handler.NewSystemHandler(healthTarget)
	engine.GET("/healthz", systemHandler.Healthz)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewTickHandler(tickService)).
		Register(handler.NewConsentHandler(consentService)).
		Register(handler.NewUsageHandler(snapshotService)).
		Register(handler.NewWalletHandler(walletService, cfg.Billing.TZOffsetMinutes)).
		Register(handler.NewSessionHandler(sessionRepo)).
		Register(systemHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
