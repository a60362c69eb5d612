package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livability_backend/internal/cachestore"
	"livability_backend/internal/contextreport"
	"livability_backend/internal/geocoding"
	"livability_backend/internal/scheduler"
	"livability_backend/platform/bootstrap"
	"livability_backend/platform/config"
	"livability_backend/platform/db"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cacheBackend", cfg.CacheBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	deps := contextreport.Dependencies{
		Logger:  log,
		Metrics: observability.NewMetrics(),
		Clock:   clock,
	}

	var purgers []scheduler.NamedPurger
	switch cfg.CacheBackend {
	case config.CacheBackendPostgres:
		pool := connectPostgres(ctx, cfg, log)
		defer pool.Close()
		deps.DB = pool

		purgers, err = postgresPurgers(pool, clock)
		if err != nil {
			log.Error("failed to initialize cache purgers", "error", err)
			panic("failed to initialize cache purgers: " + err.Error())
		}
	case config.CacheBackendRedis:
		// redis drops expired keys itself, so there is nothing to purge
		client := connectRedis(ctx, cfg, log)
		defer func() { _ = client.Close() }()
		deps.Redis = client
	case config.CacheBackendMemory:
		log.Warn("memory cache backend: warm-ups only fill this process's cache")
	}

	deps.Locator = geocoding.NewService(cfg.GetPDOKBaseURL(), cfg.GetNominatimURL(), cfg.GetProviderTimeout(), log)
	contextModule, err := contextreport.NewModule(cfg, deps)
	if err != nil {
		log.Error("failed to initialize context report module", "error", err)
		panic("failed to initialize context report module: " + err.Error())
	}

	cachePurge := scheduler.NewCachePurge(purgers, clock, log, cfg.GetCachePurgeInterval(), cfg.GetCachePurgeGrace())
	go cachePurge.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, contextModule, cachePurge, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func postgresPurgers(pool *pgxpool.Pool, clock clockwork.Clock) ([]scheduler.NamedPurger, error) {
	purgers := make([]scheduler.NamedPurger, 0, len(cachestore.Tables))
	for _, table := range cachestore.Tables {
		// purging never decodes payloads, so the payload type is irrelevant
		store, err := cachestore.NewPostgres[json.RawMessage](pool, table, clock)
		if err != nil {
			return nil, err
		}
		purgers = append(purgers, scheduler.NamedPurger{Name: table, Purger: store})
	}
	return purgers, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
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
	return pool
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
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
	return client
}
