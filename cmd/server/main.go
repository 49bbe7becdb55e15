package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/admarket/backend/internal/application/admin"
	"github.com/admarket/backend/internal/application/dispute"
	appevent "github.com/admarket/backend/internal/application/event"
	"github.com/admarket/backend/internal/application/escrow"
	"github.com/admarket/backend/internal/application/payment"
	"github.com/admarket/backend/internal/domain/shared"
	"github.com/admarket/backend/internal/infrastructure/auth"
	"github.com/admarket/backend/internal/infrastructure/cache"
	"github.com/admarket/backend/internal/infrastructure/config"
	"github.com/admarket/backend/internal/infrastructure/event"
	"github.com/admarket/backend/internal/infrastructure/logger"
	"github.com/admarket/backend/internal/infrastructure/migration"
	"github.com/admarket/backend/internal/infrastructure/persistence"
	"github.com/admarket/backend/internal/infrastructure/storage"
	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/admarket/backend/internal/interfaces/http/handler"
	"github.com/admarket/backend/internal/interfaces/http/middleware"
	"github.com/admarket/backend/internal/interfaces/http/router"
	"github.com/admarket/backend/migrations"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.NewFromSettings(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting ad marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log = logger.Tee(log, loggerProvider.Core(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Profiling.ApplicationName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithZapLogger(log, cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:          cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected")

	redisClient := connectRedis(ctx, cfg.Redis, log)

	// Repositories
	sellerRepo := persistence.NewGormSellerRepository(db.DB)
	channelRepo := persistence.NewGormChannelRepository(db.DB)
	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	activityRepo := persistence.NewGormActivityRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	withdrawalRepo := persistence.NewGormWithdrawalRepository(db.DB)
	disputeRepo := persistence.NewGormDisputeRepository(db.DB)
	adminActionRepo := persistence.NewGormAdminActionRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Every unit of work writes its domain events to the outbox in the same
	// transaction; the processor delivers them to the bus afterwards.
	serializer := event.NewCampaignSerializer()
	scope := persistence.NewGormTransactionScope(db.DB,
		event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries),
		persistence.WithLockTimeout(cfg.Database.LockTimeout),
	)

	eventBus := event.NewInMemoryEventBus(log)
	escrowMetrics, err := telemetry.NewEscrowMetrics(meterProvider.Meter("admarket.escrow"))
	if err != nil {
		log.Fatal("Failed to create escrow metrics", zap.Error(err))
	}
	metricsHandler := event.NewMetricsHandler(escrowMetrics)
	eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	messagePublisher := event.NewMessagePublisher(cfg.RabbitMQ, log)
	notifier := event.NewIdempotentHandler("notifier",
		event.NewNotifier(messagePublisher, serializer, cfg.RabbitMQ.Exchange),
		idempotencyStore,
		shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true},
		log,
	)
	eventBus.Subscribe(notifier, notifier.EventTypes()...)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupSchedule:  cfg.Event.CleanupSchedule,
			ClaimTimeout:     cfg.Event.ClaimTimeout,
		}, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	} else {
		log.Warn("Outbox processor disabled; events stay pending until another instance delivers them")
	}

	// Application services
	escrowService := escrow.NewService(scope, escrow.Repositories{
		Sellers:    sellerRepo,
		Channels:   channelRepo,
		Campaigns:  campaignRepo,
		Activities: activityRepo,
	}, log,
		escrow.WithCommissionPercent(cfg.Marketplace.CommissionPercent),
		escrow.WithProofStorage(storage.NewProofStorage(&cfg.Storage, log)),
	)
	paymentService := payment.NewService(scope, payment.Repositories{
		Sellers:      sellerRepo,
		Channels:     channelRepo,
		Transactions: transactionRepo,
		Withdrawals:  withdrawalRepo,
	}, log, payment.WithLimits(payment.Limits{
		MinDeposit:    cfg.Marketplace.MinDeposit,
		MaxDeposit:    cfg.Marketplace.MaxDeposit,
		MinWithdrawal: cfg.Marketplace.MinWithdrawal,
		MaxWithdrawal: cfg.Marketplace.MaxWithdrawal,
	}))
	disputeService := dispute.NewService(scope, disputeRepo, campaignRepo, log)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// HTTP edge
	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	var limiter middleware.Limiter
	var limiterCloser func() error
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient)
		if cfg.HTTP.RateLimit > 0 {
			limiter = cache.NewRedisRateLimiter(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		}
	} else if cfg.HTTP.RateLimit > 0 {
		mem := cache.NewInMemoryRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		limiter, limiterCloser = mem, mem.Close
		log.Warn("Rate limits are per instance while redis is unavailable")
	}

	adminService := admin.NewService(scope, admin.Repositories{
		Sellers:      sellerRepo,
		Channels:     channelRepo,
		Campaigns:    campaignRepo,
		Transactions: transactionRepo,
		Actions:      adminActionRepo,
	}, log, admin.WithSessionRevoker(revocations, cfg.JWT.MaxTokenLifetime))

	var httpMeter metric.Meter
	if meterProvider.IsEnabled() {
		httpMeter = meterProvider.Meter("admarket.http")
	}

	engine := router.NewEngine(router.Handlers{
		Campaigns: handler.NewCampaignHandler(escrowService),
		Payments:  handler.NewPaymentHandler(paymentService),
		Admin:     handler.NewAdminHandler(adminService, disputeService, paymentService, outboxService),
		System:    handler.NewSystemHandler(cfg.App.Name, version, db),
	}, router.Options{
		Validator:   auth.NewTokenValidator(cfg.JWT, auth.WithRevocationList(revocations)),
		GatewayRole: cfg.JWT.GatewayRole,
		Limiter:     limiter,
		Meter:       httpMeter,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{"/health"},
		},
		Profiling: profiler.IsEnabled() && cfg.Profiling.RouteLabels,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop taking requests first, then drain what they left in the outbox.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}

	closers := []struct {
		name  string
		close func() error
	}{
		{"message publisher", messagePublisher.Close},
		{"idempotency store", idempotencyStore.Close},
		{"rate limiter", limiterCloser},
		{"redis", closeRedis(redisClient)},
		{"database", db.Close},
	}
	for _, c := range closers {
		if c.close == nil {
			continue
		}
		if err := c.close(); err != nil {
			log.Error("Error closing "+c.name, zap.Error(err))
		}
	}

	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// connectRedis returns a client shared by token revocation and rate
// limiting, or nil when Redis cannot be reached
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable; token revocations are not checked", zap.String("addr", cfg.Addr()), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("Redis connected", zap.String("addr", cfg.Addr()))
	return client
}

func closeRedis(client *redis.Client) func() error {
	if client == nil {
		return nil
	}
	return client.Close
}

// applyMigrations runs the embedded schema on a dedicated connection; the
// migrate driver closes the handle it is given
func applyMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(conn, migrations.FS, log)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
