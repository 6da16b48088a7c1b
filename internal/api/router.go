package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/paysecure/auth-service/docs"
	"github.com/paysecure/auth-service/internal/api/handler"
	"github.com/paysecure/auth-service/internal/api/middleware"
	"github.com/paysecure/auth-service/internal/core/ports"
)

const defaultBodyLimit = "64K"

// RouterConfig carries everything NewRouter needs to register routes.
type RouterConfig struct {
	AuthService ports.AuthService
	// Dependencies are pinged by the readiness probe, keyed by name.
	Dependencies map[string]ports.Pinger
	Log          zerolog.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	BodyLimit      string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Log))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	// HTTP metrics live in a per-router registry; /metrics serves it together
	// with the service metrics on the default registry.
	httpMetrics := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "auth_http",
		Registerer: httpMetrics,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	healthHandler := handler.NewHealthHandler(cfg.Dependencies)
	requireAuth := middleware.Auth(cfg.AuthService)
	throttle := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// --- Auth routes ---
	auth := e.Group("/api/v1/auth")
	auth.POST("/signup", authHandler.Signup, throttle)
	auth.POST("/login", authHandler.Login, throttle)
	auth.POST("/logout", authHandler.Logout, requireAuth)
	auth.GET("/me", authHandler.Me, requireAuth)

	// --- Health probes (no auth required) ---
	auth.GET("/health", healthHandler.Liveness)
	auth.GET("/health/ready", healthHandler.Readiness)

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{httpMetrics, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
