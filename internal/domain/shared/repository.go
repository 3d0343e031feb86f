package shared

import (
	"github.com/google/uuid"
)

// TeamScope identifies the caller on whose behalf records are read or written.
// Every persistence call in the import pipeline takes one explicitly.
type TeamScope struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// Validate ensures the scope can be used for tenant-scoped queries.
func (s TeamScope) Validate() error {
	if s.TenantID == uuid.Nil {
		return NewDomainError("INVALID_SCOPE", "Tenant ID cannot be empty")
	}
	return nil
}

// Pagination holds paging options shared by the filter structs.
type Pagination struct {
	Page     int
	PageSize int
}

// MaxPageSize caps list queries.
const MaxPageSize = 500

// Normalize clamps paging values into their valid range.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
