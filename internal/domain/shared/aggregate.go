package shared

import (
	"github.com/google/uuid"
)

// TenantEntity is a record owned by exactly one team.
type TenantEntity struct {
	BaseEntity
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantEntity creates a new tenant-scoped entity
func NewTenantEntity(tenantID uuid.UUID) TenantEntity {
	return TenantEntity{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
	}
}

// NewTenantEntityWithCreator creates a new tenant-scoped entity with creator info
func NewTenantEntityWithCreator(tenantID, createdBy uuid.UUID) TenantEntity {
	e := NewTenantEntity(tenantID)
	if createdBy != uuid.Nil {
		e.CreatedBy = &createdBy
	}
	return e
}
