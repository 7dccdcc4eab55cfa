package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/s1037989/stripepayment/internal/config"
	"github.com/s1037989/stripepayment/internal/event"
	handler "github.com/s1037989/stripepayment/internal/handler/http"
	"github.com/s1037989/stripepayment/internal/provider/stripe"
	"github.com/s1037989/stripepayment/internal/repository"
	"github.com/s1037989/stripepayment/internal/repository/memory"
	"github.com/s1037989/stripepayment/internal/repository/postgres"
	"github.com/s1037989/stripepayment/internal/service"
	"github.com/s1037989/stripepayment/migrations"
	"github.com/s1037989/stripepayment/pkg/database"
	"github.com/s1037989/stripepayment/pkg/health"
	"github.com/s1037989/stripepayment/pkg/idempotency"
	pkgkafka "github.com/s1037989/stripepayment/pkg/kafka"
	"github.com/s1037989/stripepayment/pkg/middleware"
	"github.com/s1037989/stripepayment/pkg/tracing"
)

// ServiceName identifies this process in logs, metrics and traces.
const ServiceName = "stripepayment"

// App wires together all dependencies and runs the payment host.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	client         *stripe.Client
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Postgres, Redis and Kafka are optional: without them charge records and
// idempotency keys stay in memory and events are not published.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Payment provider client.
	a.client = stripe.New(cfg.Stripe(), logger)
	healthHandler.RegisterNonCritical("stripe", a.client.Ready)
	logger.Info("payment client initialized",
		slog.String("base_url", a.client.Config().BaseURL),
		slog.Bool("mocked", cfg.Mocked),
		slog.Bool("auto_capture", cfg.AutoCapture),
	)

	// Charge records.
	repo, err := a.initRepository(ctx, healthHandler)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	// Idempotency keys.
	keys, err := a.initIdempotency(ctx, healthHandler)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	// Charge events.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", health.PingChecker(a.producer))
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	checkoutService := service.NewCheckoutService(a.client, repo, eventProducer, keys, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterDeps{
		Provider: a.client,
		Checkout: checkoutService,
		Health:   healthHandler,
		Mock:     a.client.Mock(),
		CORS:     corsCfg,
		Logger:   logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) initRepository(ctx context.Context, h *health.Handler) (repository.ChargeRecordRepository, error) {
	if !a.cfg.PostgresEnabled() {
		a.logger.Warn("POSTGRES_HOST not set, charge records are kept in memory")
		return memory.NewChargeRecordRepository(), nil
	}

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = a.cfg.PostgresHost
	pgCfg.Port = a.cfg.PostgresPort
	pgCfg.User = a.cfg.PostgresUser
	pgCfg.Password = a.cfg.PostgresPass
	pgCfg.DBName = a.cfg.PostgresDB
	pgCfg.SSLMode = a.cfg.PostgresSSL
	pgCfg.MaxConns = a.cfg.DBMaxConns

	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	h.RegisterCritical("postgres", health.PostgresChecker(pool))

	return postgres.NewChargeRecordRepository(pool, database.QueryTracer{
		SlowThreshold: a.cfg.DBSlowQueryThreshold,
		Logger:        a.logger,
	}), nil
}

func (a *App) initIdempotency(ctx context.Context, h *health.Handler) (idempotency.Store, error) {
	if !a.cfg.RedisEnabled() {
		a.logger.Warn("REDIS_HOST not set, idempotency keys are kept in memory")
		return idempotency.NewMemoryStore(a.cfg.IdempotencyTTL), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = a.cfg.RedisHost
	redisCfg.Port = a.cfg.RedisPort
	redisCfg.Password = a.cfg.RedisPassword
	redisCfg.DB = a.cfg.RedisDB

	client, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))

	h.RegisterCritical("redis", health.RedisChecker(client))

	return idempotency.NewRedisStore(client, a.cfg.IdempotencyTTL), nil
}

// Handler returns the HTTP handler the server runs.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server first so in-flight charges finish, then
// flushes spans and closes the Kafka producer and the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.Timeout+5*time.Second)
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

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil {
			a.logger.Error("redis close error", slog.String("error", cerr.Error()))
			err = cerr
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}
