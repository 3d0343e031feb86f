package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLimiter(limit int, period time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, period)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Minute)

	ok, remaining := rl.Allow("tenant:a")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, remaining = rl.Allow("tenant:a")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	ok, _ = rl.Allow("tenant:a")
	assert.False(t, ok)

	ok, _ = rl.Allow("tenant:b")
	assert.True(t, ok, "windows are per key")

	clock.t = clock.t.Add(time.Minute)
	ok, remaining = rl.Allow("tenant:a")
	assert.True(t, ok, "window resets after the period")
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)
	rl.Allow("tenant:a")
	clock.t = clock.t.Add(30 * time.Second)
	rl.Allow("tenant:b")

	clock.t = clock.t.Add(40 * time.Second)
	rl.sweep()

	assert.NotContains(t, rl.windows, "tenant:a")
	assert.Contains(t, rl.windows, "tenant:b")
}

func TestRateLimitByTeam(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)
	tenantA, tenantB := uuid.New(), uuid.New()

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if id := c.GetHeader(TenantIDHeader); id != "" {
			c.Set(scopeKey, shared.TeamScope{TenantID: uuid.MustParse(id), UserID: uuid.New()})
		}
	}, RateLimitByTeam(rl))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(tenant string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tenant != "" {
			req.Header.Set(TenantIDHeader, tenant)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w := do(tenantA.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(tenantA.String())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", errorCode(t, w))

	assert.Equal(t, http.StatusOK, do(tenantB.String()).Code)
	assert.Equal(t, http.StatusOK, do("").Code, "anonymous requests use the client IP")
	assert.Equal(t, http.StatusTooManyRequests, do("").Code)
}
