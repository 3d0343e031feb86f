package finance

import (
	"strings"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableStatus represents the collection state of a receivable
type ReceivableStatus string

const (
	ReceivableStatusPending   ReceivableStatus = "pending"
	ReceivableStatusReceived  ReceivableStatus = "received"
	ReceivableStatusOverdue   ReceivableStatus = "overdue"
	ReceivableStatusCancelled ReceivableStatus = "cancelled"
)

// IsValid checks if the status is a known ReceivableStatus
func (s ReceivableStatus) IsValid() bool {
	switch s {
	case ReceivableStatusPending, ReceivableStatusReceived, ReceivableStatusOverdue, ReceivableStatusCancelled:
		return true
	}
	return false
}

// ParseReceivableStatus maps free-text status labels to a ReceivableStatus.
func ParseReceivableStatus(label string) ReceivableStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "received", "recebido", "pago", "paid":
		return ReceivableStatusReceived
	case "overdue", "atrasado", "vencido":
		return ReceivableStatusOverdue
	case "cancelled", "canceled", "cancelado":
		return ReceivableStatusCancelled
	default:
		return ReceivableStatusPending
	}
}

// Receivable is money expected from a client, optionally tied to a contract.
type Receivable struct {
	shared.TenantEntity
	ContractID     *uuid.UUID
	ClientName     string
	Description    string
	Category       string
	InvoiceNumber  string
	Notes          string
	Amount         decimal.Decimal
	ExpectedDate   time.Time
	Status         ReceivableStatus
	ReceivedDate   *time.Time
	ReceivedAmount *decimal.Decimal
	ImportID       *uuid.UUID
}

// NewReceivable creates a new pending receivable
func NewReceivable(tenantID uuid.UUID, amount decimal.Decimal, expectedDate time.Time) (*Receivable, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if expectedDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Expected date is required")
	}

	return &Receivable{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Amount:       amount.Round(2),
		ExpectedDate: expectedDate,
		Status:       ReceivableStatusPending,
	}, nil
}

// MarkReceived records the payment of the receivable
func (r *Receivable) MarkReceived(receivedDate time.Time, amount *decimal.Decimal) error {
	if r.Status == ReceivableStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot receive a cancelled receivable")
	}
	if receivedDate.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Received date is required")
	}
	received := r.Amount
	if amount != nil {
		if !amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Received amount must be positive")
		}
		received = amount.Round(2)
	}
	r.Status = ReceivableStatusReceived
	r.ReceivedDate = &receivedDate
	r.ReceivedAmount = &received
	r.UpdatedAt = time.Now()
	return nil
}

// LinkContract ties the receivable to a contract
func (r *Receivable) LinkContract(contractID uuid.UUID) {
	r.ContractID = &contractID
}
