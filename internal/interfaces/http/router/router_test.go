package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/infrastructure/config"
	"github.com/arqcashflow/backend/internal/interfaces/http/handler"
	"github.com/arqcashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type echoRegistrar struct{}

func (echoRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/imports/echo", func(c *gin.Context) {
		scope, _ := middleware.GetScope(c)
		c.String(http.StatusOK, scope.TenantID.String())
	})
	rg.GET("/imports/panic", func(c *gin.Context) {
		panic("boom")
	})
}

func newTestRouter(t *testing.T, mutate func(*Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{
		Logger:      zap.NewNop(),
		HTTP:        config.HTTPConfig{MaxBodySize: 1 << 10, CORSAllowOrigins: []string{"https://app.arq.com.br"}},
		ServiceName: "arq-test",
		Auth:        middleware.AuthConfig{AllowHeaderAuth: true},
		Health:      handler.NewHealthHandler("test", nil),
		Registrars:  []RouteRegistrar{echoRegistrar{}},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := New(cfg)
	require.NoError(t, err)
	return engine
}

func authed(method, path string, tenant uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(middleware.TenantIDHeader, tenant.String())
	req.Header.Set(middleware.UserIDHeader, uuid.NewString())
	return req
}

func TestNew_HealthIsPublic(t *testing.T) {
	engine := newTestRouter(t, func(c *Config) { c.Auth = middleware.AuthConfig{} })

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

func TestNew_APIRequiresAuth(t *testing.T) {
	engine := newTestRouter(t, func(c *Config) { c.Auth = middleware.AuthConfig{} })
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, authed(http.MethodGet, "/api/v1/imports/echo", uuid.New()))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNew_RegistrarsReceiveScope(t *testing.T) {
	engine := newTestRouter(t, nil)
	tenant := uuid.New()
	req := authed(http.MethodGet, "/api/v1/imports/echo", tenant)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("Origin", "https://app.arq.com.br")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.String(), w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "https://app.arq.com.br", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestNew_PanicRecovered(t *testing.T) {
	engine := newTestRouter(t, nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, authed(http.MethodGet, "/api/v1/imports/panic", uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNew_BodyLimit(t *testing.T) {
	engine := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/echo", strings.NewReader(strings.Repeat("x", 2<<10)))
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNew_RateLimitPerTenant(t *testing.T) {
	engine := newTestRouter(t, func(c *Config) {
		c.RateLimiter = middleware.NewRateLimiter(2, time.Minute)
	})
	tenant := uuid.New()

	for range 2 {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authed(http.MethodGet, "/api/v1/imports/echo", tenant))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, authed(http.MethodGet, "/api/v1/imports/echo", tenant))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is outside the limited group")
}

func TestNew_WithMetricsAndTracing(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")
	engine := newTestRouter(t, func(c *Config) {
		c.Meter = meter
		c.TracingEnabled = true
	})
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, authed(http.MethodGet, "/api/v1/imports/echo", uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_InvalidTrustedProxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, err := New(Config{
		Logger: zap.NewNop(),
		HTTP:   config.HTTPConfig{TrustedProxies: []string{"not-an-ip"}},
	})
	assert.Error(t, err)
}
