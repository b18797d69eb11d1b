package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/cache"
	"github.com/jihadsmadi/kindearth-backend/internal/config"
	"github.com/jihadsmadi/kindearth-backend/internal/event"
	handler "github.com/jihadsmadi/kindearth-backend/internal/handler/http"
	"github.com/jihadsmadi/kindearth-backend/internal/migrations"
	"github.com/jihadsmadi/kindearth-backend/internal/repository/postgres"
	"github.com/jihadsmadi/kindearth-backend/internal/seed"
	"github.com/jihadsmadi/kindearth-backend/internal/service"
	"github.com/jihadsmadi/kindearth-backend/pkg/database"
	"github.com/jihadsmadi/kindearth-backend/pkg/health"
	pkgkafka "github.com/jihadsmadi/kindearth-backend/pkg/kafka"
	"github.com/jihadsmadi/kindearth-backend/pkg/middleware"
	"github.com/jihadsmadi/kindearth-backend/pkg/tracing"
)

const serviceName = "kindearth-backend"

// App wires together all dependencies and runs the backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// New creates the application, initializing all dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Redis is an optimization, not a dependency: when it is down the
	// catalog serves straight from Postgres.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.String("error", err.Error()))
		redisClient = nil
	}

	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	tokens := auth.NewTokenManager(
		cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessExpiry(), cfg.RefreshExpiry(),
	)

	userRepo := postgres.NewUserRepository(pool)
	vendorRepo := postgres.NewVendorProfileRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	tagRepo := postgres.NewTagRepository(pool)
	productRepo := postgres.NewProductRepository(pool)

	catalogCache := cache.NewCatalog(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
	eventProducer := event.NewProducer(producer, logger)

	authService := service.NewAuthService(userRepo, vendorRepo, tokens, eventProducer, logger)
	catalogService := service.NewCatalogService(categoryRepo, tagRepo, productRepo, catalogCache, eventProducer, logger)

	seeder := seed.New(userRepo, categoryRepo, tagRepo, logger)
	if err := seeder.Run(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed baseline data: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	cookies := handler.NewCookieManager(cfg.Environment, cfg.AccessExpiry(), cfg.RefreshExpiry())

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:    handler.NewAuthHandler(authService, cookies, logger),
		CatalogHandler: handler.NewCatalogHandler(catalogService, logger),
		Tokens:         tokens,
		Health:         healthHandler,
		Logger:         logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
			Environment:      cfg.Environment,
		},
		ServiceName: serviceName,
		PprofCIDRs:  cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops all components in order: drain HTTP, flush spans, close
// Kafka and Redis, then the database pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
