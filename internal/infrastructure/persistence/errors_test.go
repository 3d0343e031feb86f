package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	wrapPg := func(code string) error {
		return fmt.Errorf("insert: %w", &pgconn.PgError{Code: code, Message: "violates constraint", ConstraintName: "contracts_pkey"})
	}

	tests := []struct {
		name     string
		err      error
		want     error
		rowError bool
	}{
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound, false},
		{"gorm duplicate", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists, true},
		{"unique violation", wrapPg(pgUniqueViolation), shared.ErrAlreadyExists, true},
		{"check violation", wrapPg(pgCheckViolation), shared.ErrInvalidInput, true},
		{"not null", wrapPg(pgNotNullViolation), shared.ErrInvalidInput, true},
		{"value too long", wrapPg(pgStringTooLong), shared.ErrInvalidInput, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.rowError, IsRowError(got))
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("tenant mismatch", func(t *testing.T) {
		got := translateError(tenant.ErrTenantMismatch)
		var domainErr *shared.DomainError
		assert.True(t, errors.As(got, &domainErr))
		assert.Equal(t, "INVALID_SCOPE", domainErr.Code)
		assert.False(t, IsRowError(got))
	})

	t.Run("connection failures are systematic", func(t *testing.T) {
		got := translateError(wrapPg("08006"))
		assert.False(t, IsRowError(got))
		assert.Contains(t, got.Error(), "database:")
	})
}
