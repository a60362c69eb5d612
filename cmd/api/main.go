package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livability_backend/internal/cachestore"
	"livability_backend/internal/contextreport"
	"livability_backend/internal/geocoding"
	apphttp "livability_backend/internal/http"
	"livability_backend/internal/http/router"
	"livability_backend/internal/scheduler"
	"livability_backend/platform/bootstrap"
	"livability_backend/platform/config"
	"livability_backend/platform/db"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"
	"livability_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "cacheBackend", cfg.CacheBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	deps := contextreport.Dependencies{
		Validator: validator.New(),
		Logger:    log,
		Metrics:   observability.NewMetrics(),
	}
	var health apphttp.HealthChecker

	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		pool := mustConnectPostgres(ctx, cfg, log)
		defer pool.Close()
		deps.DB = pool
		health = db.NewPoolAdapter(pool)
	case config.CacheBackendRedis:
		client := mustConnectRedis(ctx, cfg, log)
		defer func() { _ = client.Close() }()
		deps.Redis = client
	}

	if schedulerClient := initSchedulerClient(cfg, log); schedulerClient != nil {
		defer func() { _ = schedulerClient.Close() }()
		deps.Warmer = schedulerClient
		deps.Queue = schedulerClient.Queue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	geocodingModule := geocoding.NewModule(cfg, log)
	deps.Locator = geocodingModule.Service()

	contextModule, err := contextreport.NewModule(cfg, deps)
	if err != nil {
		log.Error("failed to initialize context report module", "error", err)
		panic("failed to initialize context report module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: health,
		Modules: []apphttp.Module{
			geocodingModule,
			contextModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.ReportTimeout + 10*time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func mustConnectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	if err := bootstrap.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete", "tables", len(cachestore.Tables))

	var pool *pgxpool.Pool
	if err := bootstrap.WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")
	return pool
}

func mustConnectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	var client *redis.Client
	if err := bootstrap.WithRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")
	return client
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) *scheduler.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; cache warm-up disabled")
		return nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil
	}
	return client
}
