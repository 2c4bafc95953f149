package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/andinotravel/partner-portal/internal/catalog"
	"github.com/andinotravel/partner-portal/internal/config"
	"github.com/andinotravel/partner-portal/internal/lock"
	"github.com/andinotravel/partner-portal/internal/obs"
	syncjob "github.com/andinotravel/partner-portal/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	importer := &syncjob.Importer{
		FeedURL: cfg.CatalogFeedURL,
		HTTP: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.CatalogFeedTimeout,
		},
		Store:   catalog.NewRepository(pool),
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL: cfg.LockTTL,
		Metrics: obs.NewSyncMetrics("portal", nil),
		Logger:  logger,
	}

	parsedRedis, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisOpt := asynq.RedisClientOpt{Addr: parsedRedis.Addr, Password: parsedRedis.Password, DB: parsedRedis.DB}
	mux := asynq.NewServeMux()
	mux.Handle(syncjob.TypeCatalogSync, &syncjob.TaskHandler{Importer: importer})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(cfg.SyncInterval, syncjob.NewCatalogSyncTask()); err != nil {
		logger.Fatal().Err(err).Msg("register catalog sync schedule")
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	server := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 2})
	go func() {
		<-ctx.Done()
		scheduler.Shutdown()
		server.Shutdown()
	}()

	logger.Info().Str("schedule", cfg.SyncInterval).Msg("worker starting")
	if err := server.Run(mux); err != nil {
		logger.Error().Err(err).Msg("worker stopped with error")
		return
	}
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
