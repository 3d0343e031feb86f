package finance

import (
	"strings"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseStatus represents the payment state of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusPaid      ExpenseStatus = "paid"
	ExpenseStatusOverdue   ExpenseStatus = "overdue"
	ExpenseStatusCancelled ExpenseStatus = "cancelled"
)

// IsValid checks if the status is a known ExpenseStatus
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusPaid, ExpenseStatusOverdue, ExpenseStatusCancelled:
		return true
	}
	return false
}

// ParseExpenseStatus maps free-text status labels to an ExpenseStatus.
func ParseExpenseStatus(label string) ExpenseStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "paid", "pago", "quitado":
		return ExpenseStatusPaid
	case "overdue", "atrasado", "vencido":
		return ExpenseStatusOverdue
	case "cancelled", "canceled", "cancelado":
		return ExpenseStatusCancelled
	default:
		return ExpenseStatusPending
	}
}

// Expense is a payable owed to a vendor.
type Expense struct {
	shared.TenantEntity
	ContractID    *uuid.UUID
	Description   string
	Vendor        string
	Category      string
	InvoiceNumber string
	Notes         string
	Amount        decimal.Decimal
	DueDate       time.Time
	Status        ExpenseStatus
	PaidDate      *time.Time
	ImportID      *uuid.UUID
}

// NewExpense creates a new pending expense
func NewExpense(tenantID uuid.UUID, description, vendor string, amount decimal.Decimal, dueDate time.Time) (*Expense, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	description = strings.TrimSpace(description)
	vendor = strings.TrimSpace(vendor)
	if description == "" {
		description = vendor
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot be empty")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Due date is required")
	}

	return &Expense{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Description:  description,
		Vendor:       vendor,
		Amount:       amount.Round(2),
		DueDate:      dueDate,
		Status:       ExpenseStatusPending,
	}, nil
}

// MarkPaid records the payment of the expense
func (e *Expense) MarkPaid(paidDate time.Time) error {
	if e.Status == ExpenseStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot pay a cancelled expense")
	}
	if paidDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Paid date is required")
	}
	e.Status = ExpenseStatusPaid
	e.PaidDate = &paidDate
	e.UpdatedAt = time.Now()
	return nil
}

// LinkContract ties the expense to a contract
func (e *Expense) LinkContract(contractID uuid.UUID) {
	e.ContractID = &contractID
}
