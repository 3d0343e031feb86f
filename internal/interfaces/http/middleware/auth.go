// Package middleware holds the gin middleware of the import API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/auth"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"github.com/arqcashflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	scopeKey       = "team_scope"
	bearerPrefix   = "Bearer "
	TenantIDHeader = "X-Tenant-ID"
	UserIDHeader   = "X-User-ID"
)

// ScopeVerifier resolves a bearer token to the caller's team scope
type ScopeVerifier interface {
	VerifyScope(token string) (shared.TeamScope, error)
}

// AuthConfig configures Auth
type AuthConfig struct {
	Verifier ScopeVerifier
	// AllowHeaderAuth accepts X-Tenant-ID and X-User-ID when no bearer token
	// is sent. Development only.
	AllowHeaderAuth bool
}

// Auth resolves the caller's team scope from a bearer token, or from the
// tenant and user headers when allowed, and stores it in the gin context and
// the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, code, msg := resolveScope(c, cfg)
		if code != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(code, msg, c.GetString(requestIDKey)))
			return
		}

		c.Set(scopeKey, scope)
		c.Request = c.Request.WithContext(logger.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

func resolveScope(c *gin.Context, cfg AuthConfig) (shared.TeamScope, string, string) {
	header := c.GetHeader("Authorization")
	if header != "" {
		if !strings.HasPrefix(header, bearerPrefix) || cfg.Verifier == nil {
			return shared.TeamScope{}, dto.ErrCodeTokenInvalid, "Invalid authorization header"
		}
		scope, err := cfg.Verifier.VerifyScope(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		switch {
		case err == nil:
			return scope, "", ""
		case errors.Is(err, auth.ErrExpiredToken):
			return shared.TeamScope{}, dto.ErrCodeTokenExpired, "Token has expired"
		default:
			return shared.TeamScope{}, dto.ErrCodeTokenInvalid, "Invalid token"
		}
	}

	if !cfg.AllowHeaderAuth {
		return shared.TeamScope{}, dto.ErrCodeUnauthorized, "Missing authorization header"
	}
	tenantID, err := uuid.Parse(c.GetHeader(TenantIDHeader))
	if err != nil {
		return shared.TeamScope{}, dto.ErrCodeUnauthorized, "X-Tenant-ID must be a UUID"
	}
	userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
	if err != nil {
		return shared.TeamScope{}, dto.ErrCodeUnauthorized, "X-User-ID must be a UUID"
	}
	scope := shared.TeamScope{TenantID: tenantID, UserID: userID}
	if err := scope.Validate(); err != nil {
		return shared.TeamScope{}, dto.ErrCodeUnauthorized, "Invalid team scope"
	}
	return scope, "", ""
}

// GetScope returns the scope stored by Auth
func GetScope(c *gin.Context) (shared.TeamScope, bool) {
	v, ok := c.Get(scopeKey)
	if !ok {
		return shared.TeamScope{}, false
	}
	scope, ok := v.(shared.TeamScope)
	return scope, ok
}
