package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andinotravel/partner-portal/internal/agency"
	"github.com/andinotravel/partner-portal/internal/auth"
	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/cart"
	"github.com/andinotravel/partner-portal/internal/catalog"
	"github.com/andinotravel/partner-portal/internal/common"
	"github.com/andinotravel/partner-portal/internal/config"
	"github.com/andinotravel/partner-portal/internal/exchange"
	"github.com/andinotravel/partner-portal/internal/health"
	"github.com/andinotravel/partner-portal/internal/mural"
	"github.com/andinotravel/partner-portal/internal/obs"
	"github.com/andinotravel/partner-portal/internal/ratelimit"
	"github.com/andinotravel/partner-portal/internal/reservation"
	syncjob "github.com/andinotravel/partner-portal/internal/sync"
	"github.com/andinotravel/partner-portal/internal/tariff"
	"github.com/andinotravel/partner-portal/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "portal")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "partner-portal-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runMigrations(cfg, logger)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "partner-portal-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	userRepo := user.NewRepository(pool)
	resolver := capability.Resolver{Users: userRepo}
	capMiddleware := capability.Middleware{Resolver: resolver}

	authService, err := auth.NewService(auth.Config{
		Users:           userRepo,
		Sessions:        auth.NewSessionRepository(pool),
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Svc: authService, Resolver: resolver}
	authMiddleware := auth.Middleware{Service: authService}

	catalogRepo := catalog.NewRepository(pool)
	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)

	tariffHandler := &tariff.Handler{Svc: &tariff.Service{
		Products: catalogRepo,
		Cache:    catalogCache,
		Logger:   logger,
	}}
	cartHandler := &cart.Handler{}

	muralService := &mural.Service{Store: mural.NewRepository(pool), Logger: logger}
	muralHandler := &mural.Handler{Svc: muralService}
	muralAdmin := &mural.AdminHandler{Svc: muralService}

	reservationService := &reservation.Service{
		Store:    reservation.NewRepository(pool),
		Validate: validate,
		Logger:   logger,
	}
	reservationHandler := &reservation.Handler{Svc: reservationService}

	agencyService := &agency.Service{
		Store:    agency.NewRepository(pool),
		Validate: validate,
		Logger:   logger,
	}
	agencyHandler := &agency.Handler{Svc: agencyService}
	agencyAdmin := &agency.AdminHandler{Svc: agencyService}

	userAdmin := &user.AdminHandler{Svc: &user.Service{
		Store:    userRepo,
		Validate: validate,
		Logger:   logger,
	}}

	exchangeHandler := &exchange.Handler{Store: exchange.NewRepository(pool)}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer taskClient.Close()
	syncAdmin := &syncjob.AdminHandler{Client: taskClient}

	limiter := ratelimit.Limiter{Client: redisClient, Prefix: "rl:"}
	loginLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "login:" + common.ClientIP(r) },
			Window: cfg.LoginRateWindow,
			Max:    cfg.LoginRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("login rate limiter unavailable") },
	}
	confirmLimit := ratelimit.Handler{
		Limiter: limiter,
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				email, _ := common.Identity(r.Context())
				return "confirm:" + email
			},
			Window: cfg.ConfirmRateWindow,
			Max:    cfg.ConfirmRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("confirm rate limiter unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/agencies/register", agencyHandler.Register)

		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimit.Middleware).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth, capMiddleware.Require).Get("/me", authHandler.Me)
		})

		v.Group(func(portal chi.Router) {
			portal.Use(authMiddleware.RequireAuth)
			portal.Use(capMiddleware.Require)

			portal.Get("/tariff", tariffHandler.List)
			portal.Get("/tariff/{id}", tariffHandler.Get)
			portal.Post("/cart/quote", cartHandler.Quote)

			portal.Group(func(res chi.Router) {
				res.Use(capMiddleware.RequireReserve)
				res.Post("/reservations", reservationHandler.Create)
				res.Get("/reservations", reservationHandler.List)
			})

			portal.Route("/mural", func(m chi.Router) {
				m.Use(capMiddleware.RequireMural)
				m.Get("/notices", muralHandler.List)
				m.With(confirmLimit.Middleware).Post("/notices/{id}/confirm", muralHandler.Confirm)
				m.Get("/notices/{id}/readers", muralHandler.Readers)
			})

			portal.With(capMiddleware.RequireExchange).Get("/exchange", exchangeHandler.List)

			portal.Route("/admin", func(admin chi.Router) {
				admin.Use(capMiddleware.RequireAdmin)
				admin.Get("/agencies", agencyAdmin.List)
				admin.Get("/agencies/{id}", agencyAdmin.Get)
				admin.Post("/agencies/{id}/approve", agencyAdmin.Approve)
				admin.Post("/agencies/{id}/reject", agencyAdmin.Reject)
				admin.Put("/agencies/{id}/commission", agencyAdmin.SetCommission)

				admin.Get("/users", userAdmin.List)
				admin.Post("/users", userAdmin.Create)
				admin.Put("/users/{id}", userAdmin.Update)
				admin.Put("/users/{id}/password", userAdmin.ResetPassword)

				admin.Post("/notices", muralAdmin.Publish)
				admin.Delete("/notices/{id}", muralAdmin.Delete)

				admin.Put("/exchange", exchangeHandler.Upsert)
				admin.Post("/catalog/sync", syncAdmin.Trigger)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

// runMigrations applies pending schema migrations before the pool opens.
func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	sourceURL := "file://" + strings.TrimPrefix(cfg.MigrationsPath, "file://")
	databaseURL := strings.Replace(cfg.DatabaseURL, "postgres://", "pgx5://", 1)
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrations")
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
