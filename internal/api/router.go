package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/snapmeal/auth-service/internal/api/handler"
	"github.com/snapmeal/auth-service/internal/api/middleware"
	"github.com/snapmeal/auth-service/internal/core/domain"
	"github.com/snapmeal/auth-service/internal/core/ports"
	"github.com/snapmeal/auth-service/internal/core/service"
	"github.com/snapmeal/auth-service/internal/infrastructure/config"
	mongodb "github.com/snapmeal/auth-service/internal/infrastructure/db/mongo"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, limiter ports.RateLimiter, audit ports.AuditRecorder, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("auth"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	tokenService := service.NewTokenService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, tokenService, audit, log)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userRepo)
	authMW := middleware.Auth(tokenService, userRepo)

	failOpen := cfg.RateLimit.FailOpen()
	limitAuth := middleware.RateLimit(limiter, ports.ClassAuth, failOpen, log)
	limitRegister := middleware.RateLimit(limiter, ports.ClassRegister, failOpen, log)
	limitGeneral := middleware.RateLimit(limiter, ports.ClassGeneral, failOpen, log)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register, limitRegister)
	auth.POST("/login", authHandler.Login, limitAuth)
	auth.POST("/refresh", authHandler.Refresh, limitAuth)
	auth.GET("/me", authHandler.Me, limitGeneral, authMW)
	auth.POST("/logout", authHandler.Logout, limitGeneral, authMW)

	// --- Admin routes ---
	users := e.Group("/api/users", limitGeneral, authMW, middleware.RequireRole(domain.RoleAdmin))
	users.GET("/:id", userHandler.GetUser)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
