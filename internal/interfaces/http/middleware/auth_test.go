package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/auth"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"github.com/arqcashflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	tokens map[string]shared.TeamScope
	err    error
}

func (f fakeVerifier) VerifyScope(token string) (shared.TeamScope, error) {
	if f.err != nil {
		return shared.TeamScope{}, f.err
	}
	scope, ok := f.tokens[token]
	if !ok {
		return shared.TeamScope{}, auth.ErrInvalidToken
	}
	return scope, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(cfg AuthConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(Auth(cfg))
	engine.GET("/whoami", func(c *gin.Context) {
		scope, ok := GetScope(c)
		ctxScope, ctxOK := logger.ScopeFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"ok":        ok && ctxOK && scope == ctxScope,
			"tenant_id": scope.TenantID.String(),
		})
	})
	return engine
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuth_BearerToken(t *testing.T) {
	scope := shared.TeamScope{TenantID: uuid.New(), UserID: uuid.New()}
	engine := authEngine(AuthConfig{Verifier: fakeVerifier{tokens: map[string]shared.TeamScope{"good": scope}}})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, scope.TenantID.String(), body["tenant_id"])
}

func TestAuth_Rejects(t *testing.T) {
	tenant, user := uuid.NewString(), uuid.NewString()

	tests := []struct {
		name    string
		cfg     AuthConfig
		headers map[string]string
		code    string
	}{
		{
			name: "no credentials",
			cfg:  AuthConfig{Verifier: fakeVerifier{}},
			code: dto.ErrCodeUnauthorized,
		},
		{
			name:    "not a bearer header",
			cfg:     AuthConfig{Verifier: fakeVerifier{}},
			headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			code:    dto.ErrCodeTokenInvalid,
		},
		{
			name:    "unknown token",
			cfg:     AuthConfig{Verifier: fakeVerifier{}},
			headers: map[string]string{"Authorization": "Bearer nope"},
			code:    dto.ErrCodeTokenInvalid,
		},
		{
			name:    "expired token",
			cfg:     AuthConfig{Verifier: fakeVerifier{err: auth.ErrExpiredToken}},
			headers: map[string]string{"Authorization": "Bearer old"},
			code:    dto.ErrCodeTokenExpired,
		},
		{
			name:    "bearer without a verifier",
			cfg:     AuthConfig{AllowHeaderAuth: true},
			headers: map[string]string{"Authorization": "Bearer x"},
			code:    dto.ErrCodeTokenInvalid,
		},
		{
			name:    "header auth disabled",
			cfg:     AuthConfig{Verifier: fakeVerifier{}},
			headers: map[string]string{TenantIDHeader: tenant, UserIDHeader: user},
			code:    dto.ErrCodeUnauthorized,
		},
		{
			name:    "tenant header is not a uuid",
			cfg:     AuthConfig{AllowHeaderAuth: true},
			headers: map[string]string{TenantIDHeader: "team-1", UserIDHeader: user},
			code:    dto.ErrCodeUnauthorized,
		},
		{
			name:    "missing user header",
			cfg:     AuthConfig{AllowHeaderAuth: true},
			headers: map[string]string{TenantIDHeader: tenant},
			code:    dto.ErrCodeUnauthorized,
		},
		{
			name:    "nil tenant",
			cfg:     AuthConfig{AllowHeaderAuth: true},
			headers: map[string]string{TenantIDHeader: uuid.Nil.String(), UserIDHeader: user},
			code:    dto.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			authEngine(tt.cfg).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestAuth_HeaderAuth(t *testing.T) {
	tenant := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(TenantIDHeader, tenant.String())
	req.Header.Set(UserIDHeader, uuid.NewString())
	w := httptest.NewRecorder()

	authEngine(AuthConfig{AllowHeaderAuth: true}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenant.String())
}

func TestGetScope_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetScope(c)
	assert.False(t, ok)
}
