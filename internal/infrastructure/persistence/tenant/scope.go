// Package tenant scopes GORM queries to the team that owns the rows.
//
// Repositories receive the team explicitly as a shared.TeamScope and apply
// Scope to every read. Writes are checked with Owns so a record built for one
// tenant can never be stored through another tenant's scope.
//
//	db := tenant.NewTenantDB(gormDB)
//	db.For(ctx, scope).Find(&contracts) // WHERE tenant_id = 'xxx'
package tenant

import (
	"context"
	"errors"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a query runs without a tenant
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in scope")

// ErrTenantMismatch is returned when a record belongs to another tenant
var ErrTenantMismatch = errors.New("record tenant does not match scope")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Owns reports an error unless every tenant id equals the scope's tenant.
func Owns(scope shared.TeamScope, tenantIDs ...uuid.UUID) error {
	if scope.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	for _, id := range tenantIDs {
		if id != scope.TenantID {
			return ErrTenantMismatch
		}
	}
	return nil
}

// ScopeFromContext returns the TeamScope the auth middleware stored on the
// request context.
func ScopeFromContext(ctx context.Context) (shared.TeamScope, error) {
	scope, ok := logger.ScopeFromContext(ctx)
	if !ok || scope.TenantID == uuid.Nil {
		return shared.TeamScope{}, ErrTenantIDRequired
	}
	return scope, nil
}

// TenantDB wraps GORM DB with explicit tenant scoping
type TenantDB struct {
	db *gorm.DB
}

// NewTenantDB creates a new TenantDB
func NewTenantDB(db *gorm.DB) *TenantDB {
	return &TenantDB{db: db}
}

// DB returns the underlying GORM DB without tenant scoping.
// Only migrations and health checks should use it.
func (t *TenantDB) DB() *gorm.DB {
	return t.db
}

// For returns a GORM DB bound to ctx and filtered to the scope's tenant.
func (t *TenantDB) For(ctx context.Context, scope shared.TeamScope) *gorm.DB {
	return t.db.WithContext(ctx).Scopes(TenantScope(scope.TenantID))
}

// WithContext scopes to the tenant stored on ctx by the tenant middleware.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	scope, err := ScopeFromContext(ctx)
	if err != nil {
		db := t.db.WithContext(ctx)
		_ = db.AddError(err)
		return db
	}
	return t.For(ctx, scope)
}

// Transaction runs fn in a transaction. The scope must name a tenant; the
// transaction handle is not pre-filtered so inserts stay plain.
func (t *TenantDB) Transaction(ctx context.Context, scope shared.TeamScope, fn func(tx *gorm.DB) error) error {
	if scope.TenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return t.db.WithContext(ctx).Transaction(fn)
}
