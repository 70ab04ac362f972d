package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapmeal/auth-service/internal/api"
	"github.com/snapmeal/auth-service/internal/core/ports"
	"github.com/snapmeal/auth-service/internal/infrastructure/audit"
	"github.com/snapmeal/auth-service/internal/infrastructure/config"
	mongodb "github.com/snapmeal/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/snapmeal/auth-service/internal/infrastructure/db/redis"
	"github.com/snapmeal/auth-service/internal/infrastructure/ratelimit"
	"github.com/snapmeal/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MongoDB (credential store + audit trail) ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}

	// --- Redis (shared rate-limit counters) ---
	// Required when the limiter runs on it; otherwise best-effort, used only
	// by the readiness probe.
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		if cfg.RateLimit.Backend == "redis" {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Warn().Err(err).Msg("redis unavailable, readiness will report it")
	}

	// --- Rate limiter ---
	profile := ratelimit.ProfileByName(cfg.RateLimit.Profile)
	var limiter ports.RateLimiter
	if cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedisLimiter(rdb, profile)
	} else {
		limiter = ratelimit.NewMemoryLimiter(profile)
	}
	log.Info().
		Str("profile", cfg.RateLimit.Profile).
		Str("backend", cfg.RateLimit.Backend).
		Str("fail_mode", cfg.RateLimit.FailMode).
		Msg("rate limiter configured")

	// --- Audit trail ---
	recorder := audit.NewRecorder(0, mongodb.NewAuthEventRepository(db), log)
	recorder.Start(ctx)

	e := api.NewRouter(db, rdb, cfg, limiter, recorder, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("auth service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
