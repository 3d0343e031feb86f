package persistence

import (
	"errors"
	"fmt"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes mapped to domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
	pgNumericOutOfRange   = "22003"
	pgStringTooLong       = "22001"
)

// translateError maps driver errors to domain errors so the application
// layer can tell a bad row from a broken database.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.WrapDomainError(shared.ErrAlreadyExists.Code, "Record already exists", err)
	}
	if errors.Is(err, tenant.ErrTenantMismatch) || errors.Is(err, tenant.ErrTenantIDRequired) {
		return shared.WrapDomainError("INVALID_SCOPE", err.Error(), err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return shared.WrapDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf("Record already exists (%s)", pgErr.ConstraintName), err)
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation,
			pgInvalidText, pgNumericOutOfRange, pgStringTooLong:
			return shared.WrapDomainError(shared.ErrInvalidInput.Code, pgErr.Message, err)
		}
	}
	return fmt.Errorf("database: %w", err)
}

// IsRowError reports whether err was caused by the row's own data rather
// than by the database being unavailable.
func IsRowError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) || errors.Is(err, shared.ErrAlreadyExists)
}
