package finance

import (
	"context"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
)

// DateRange bounds a date column. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Validate checks the range is ordered
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return shared.NewDomainError("INVALID_FILTER", "Date range start must not be after its end")
	}
	return nil
}

// ContractFilter selects contracts. Zero-valued fields are ignored.
type ContractFilter struct {
	ClientName string
	Status     ContractStatus
	Signed     DateRange
	shared.Pagination
}

// Validate checks the filter before it reaches the query builder
func (f ContractFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return shared.NewDomainError("INVALID_FILTER", "Unknown contract status")
	}
	return f.Signed.Validate()
}

// ReceivableFilter selects receivables. Zero-valued fields are ignored.
type ReceivableFilter struct {
	ClientName string
	Status     ReceivableStatus
	Expected   DateRange
	shared.Pagination
}

// Validate checks the filter before it reaches the query builder
func (f ReceivableFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return shared.NewDomainError("INVALID_FILTER", "Unknown receivable status")
	}
	return f.Expected.Validate()
}

// ExpenseFilter selects expenses. Zero-valued fields are ignored.
type ExpenseFilter struct {
	Vendor string
	Status ExpenseStatus
	Due    DateRange
	shared.Pagination
}

// Validate checks the filter before it reaches the query builder
func (f ExpenseFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return shared.NewDomainError("INVALID_FILTER", "Unknown expense status")
	}
	return f.Due.Validate()
}

// ContractRepository persists contracts inside a team scope
type ContractRepository interface {
	Create(ctx context.Context, scope shared.TeamScope, contract *Contract) error
	CreateBatch(ctx context.Context, scope shared.TeamScope, contracts []*Contract) error
	FindMany(ctx context.Context, scope shared.TeamScope, filter ContractFilter) ([]Contract, error)
	Count(ctx context.Context, scope shared.TeamScope, filter ContractFilter) (int64, error)
}

// ReceivableRepository persists receivables inside a team scope
type ReceivableRepository interface {
	Create(ctx context.Context, scope shared.TeamScope, receivable *Receivable) error
	CreateBatch(ctx context.Context, scope shared.TeamScope, receivables []*Receivable) error
	FindMany(ctx context.Context, scope shared.TeamScope, filter ReceivableFilter) ([]Receivable, error)
	Count(ctx context.Context, scope shared.TeamScope, filter ReceivableFilter) (int64, error)
}

// ExpenseRepository persists expenses inside a team scope
type ExpenseRepository interface {
	Create(ctx context.Context, scope shared.TeamScope, expense *Expense) error
	CreateBatch(ctx context.Context, scope shared.TeamScope, expenses []*Expense) error
	FindMany(ctx context.Context, scope shared.TeamScope, filter ExpenseFilter) ([]Expense, error)
	Count(ctx context.Context, scope shared.TeamScope, filter ExpenseFilter) (int64, error)
}
