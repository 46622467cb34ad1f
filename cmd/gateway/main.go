package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"modgate/internal/cache"
	"modgate/internal/config"
	"modgate/internal/handlers"
	"modgate/internal/health"
	"modgate/internal/httpserver"
	"modgate/internal/imaging"
	"modgate/internal/metrics"
	"modgate/internal/moderation"
	"modgate/internal/ratelimit"
	"modgate/internal/scorer"
	"modgate/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := config.Load()

	logger.Info("loaded config",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)

	// ----- Redis client -----
	// A failed ping is not fatal: the cache and the limiter both fail
	// open, and go-redis reconnects when the store comes back.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	{
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, starting in degraded mode", zap.Error(err))
		} else {
			logger.Info("redis connection established", zap.String("addr", cfg.Redis.Addr))
		}
		cancel()
	}

	// ----- Caches -----
	// Two independent stores: whole responses and per-image scores.
	cacheCfg := cache.Config{Backend: cfg.Cache.Backend, TTL: cfg.Cache.TTL}

	var responseCache cache.Store
	if cfg.Cache.Enabled {
		responseCache = cache.NewLoggingStore(cache.New(cacheCfg, redisClient), "response")
	}
	imageCache := cache.NewLoggingStore(cache.New(cacheCfg, redisClient), "image")

	// ----- Rate limiter -----
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Grace)
	}

	// ----- Scorer clients -----
	textScorer, err := scorer.NewTextClient(scorer.Config{
		BaseURL: cfg.Scorer.TextBaseURL,
		APIKey:  cfg.Scorer.APIKey,
	}, logger)
	if err != nil {
		return err
	}
	defer textScorer.Close()

	imageScorer, err := scorer.NewImageClient(scorer.Config{
		BaseURL: cfg.Scorer.ImageBaseURL,
		APIKey:  cfg.Scorer.APIKey,
	}, logger)
	if err != nil {
		return err
	}
	defer imageScorer.Close()

	// ----- Image resolution -----
	fetcher := imaging.NewFetcher(imaging.Limits{
		MaxSizeMB:    cfg.Image.MaxSizeMB,
		MaxDimension: cfg.Image.MaxDimension,
	}, cfg.Image.FetchTimeout)

	// ----- Orchestrator -----
	orchestrator := moderation.NewOrchestrator(
		textScorer,
		imageScorer,
		fetcher,
		imageCache,
		moderation.NewThresholdEngine(cfg.Thresholds),
		moderation.OrchestratorConfig{
			CacheTTL:     cfg.Cache.TTL,
			DefaultModel: cfg.Scorer.TextModel,
			ImageModel:   cfg.Scorer.ImageModel,
			Version:      cfg.Version,
		},
	)

	// ----- Handlers -----
	healthService := health.NewService(
		redisClient,
		textScorer, imageScorer,
		cfg.Scorer.TextModel, cfg.Scorer.ImageModel,
		cfg.Version,
	)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Deps{
		Moderate:      handlers.NewModerateHandler(orchestrator),
		Health:        handlers.NewHealthHandler(healthService),
		Limiter:       limiter,
		ResponseCache: responseCache,
		CacheTTL:      cfg.Cache.TTL,
		Version:       cfg.Version,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting gateway",
		zap.String("addr", srv.Addr),
		zap.String("version", cfg.Version),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis close error", zap.Error(err))
	}

	logger.Info("server shutdown complete")
	return nil
}
