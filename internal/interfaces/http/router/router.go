// Package router assembles the gin engine: global middleware, the public
// health route and the authenticated /api/v1 group.
package router

import (
	"fmt"

	"github.com/arqcashflow/backend/internal/infrastructure/config"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"github.com/arqcashflow/backend/internal/interfaces/http/handler"
	"github.com/arqcashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar mounts a handler's routes on the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds everything the engine is built from. Meter and RateLimiter
// are optional.
type Config struct {
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter
	Auth           middleware.AuthConfig
	RateLimiter    *middleware.RateLimiter
	Health         *handler.HealthHandler
	Registrars     []RouteRegistrar
}

// New builds the engine
func New(cfg Config) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(cfg.Logger), middleware.RequestID())
	if cfg.TracingEnabled {
		engine.Use(middleware.Tracing(cfg.ServiceName)...)
	}
	engine.Use(
		logger.GinMiddleware(cfg.Logger),
		middleware.Secure(),
		middleware.CORS(middleware.CORSConfigFrom(cfg.HTTP)),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Health)
	}

	api := engine.Group("/api/v1")
	if cfg.Health != nil {
		api.GET("/health", cfg.Health.Health)
	}
	api.Use(middleware.Auth(cfg.Auth), middleware.TraceScope())
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimitByTeam(cfg.RateLimiter))
	}
	for _, r := range cfg.Registrars {
		r.RegisterRoutes(api)
	}
	return engine, nil
}
