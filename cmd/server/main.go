// Package main is the entry point for the report card API server.
//
// The service answers one question well: given the published higher
// education statistics, what are a student's realistic odds at a given
// institution? Everything it serves is read-only; an ETL pipeline
// loads each yearly collection and the server only queries.
//
// The layering follows Clean Architecture:
//   - Domain: statistical engines, free of external dependencies
//   - Application: CQRS query handlers
//   - Infrastructure: PostgreSQL repositories, Redis caching
//   - Interface: the REST API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/application/query"
	"github.com/survival-hub/course-survival-hub/internal/infrastructure/persistence/postgres"
	"github.com/survival-hub/course-survival-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/survival-hub/course-survival-hub/internal/interface/http"
	"github.com/survival-hub/course-survival-hub/internal/interface/http/handlers"
	"github.com/survival-hub/course-survival-hub/pkg/logger"
	"github.com/survival-hub/course-survival-hub/pkg/retry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting report card API server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	// The scheduler may start the server before the database accepts
	// connections; retry with backoff instead of crash-looping.
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	err = retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
		var connErr error
		dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed",
			logger.Int("applied", appliedCount),
			logger.Int("total", len(status)),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional response cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var responseCache *redis.ResponseCache

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureResponseCache, nil) {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// The cache is an optimization; the server runs without it.
			log.Warn("failed to connect to Redis, memoization disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			responseCache = redis.NewResponseCache(redisCache, cfg.Redis.CacheTTL)
			log.Info("Redis connection established",
				logger.Duration("cache_ttl", cfg.Redis.CacheTTL),
			)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	instRepo := postgres.NewInstitutionRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)
	equityRepo := postgres.NewEquityRepository(dbConn)
	catalogRepo := postgres.NewCatalogRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER (CQRS Read Side)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing query handlers...")
	reportQuery := query.NewGetReportHandler(instRepo, statsRepo, cfg.Engine, cfg.Features)
	rankingQuery := query.NewGetFieldRankingHandler(instRepo, statsRepo, cfg.Engine)
	heatmapQuery := query.NewGetHeatmapHandler(instRepo, statsRepo, cfg.Engine)
	equityQuery := query.NewGetEquityHandler(instRepo, equityRepo, cfg.Engine)
	coursesQuery := query.NewGetCoursesHandler(instRepo, catalogRepo, cfg.Features)
	sectorQuery := query.NewGetSectorProfileHandler(catalogRepo)
	listInstitutionsQuery := query.NewListInstitutionsHandler(instRepo, cfg.Engine)
	listFieldsQuery := query.NewListFieldsHandler(instRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimit
	serverCfg.AllowedOrigins = cfg.HTTP.CORSOrigins
	serverCfg.CacheControl = cfg.HTTP.CacheControl
	serverCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		GetReportHandler:        reportQuery,
		GetFieldRankingHandler:  rankingQuery,
		GetHeatmapHandler:       heatmapQuery,
		GetEquityHandler:        equityQuery,
		GetCoursesHandler:       coursesQuery,
		GetSectorProfileHandler: sectorQuery,
		ListInstitutionsHandler: listInstitutionsQuery,
		ListFieldsHandler:       listFieldsQuery,
		Logger:                  log,
		HealthChecker:           healthChecker,
		ResponseCache:           responseCache,
	})

	errCh := server.StartAsync()
	log.Info("server listening", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server stopped cleanly")
	return nil
}

// setupLogger builds the process logger from the observability config.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
