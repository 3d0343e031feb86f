package finance

import (
	"strings"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus represents the lifecycle state of a contract
type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusCancelled ContractStatus = "cancelled"
)

// IsValid checks if the status is a known ContractStatus
func (s ContractStatus) IsValid() bool {
	switch s {
	case ContractStatusActive, ContractStatusCompleted, ContractStatusCancelled:
		return true
	}
	return false
}

// ParseContractStatus maps free-text status labels (Portuguese or English)
// to a ContractStatus. Unrecognised labels fall back to active.
func ParseContractStatus(label string) ContractStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "completed", "concluido", "concluído", "finalizado", "encerrado":
		return ContractStatusCompleted
	case "cancelled", "canceled", "cancelado":
		return ContractStatusCancelled
	default:
		return ContractStatusActive
	}
}

// Contract is an agreement with a client for a project, worth TotalValue.
type Contract struct {
	shared.TenantEntity
	ClientName  string
	ProjectName string
	Description string
	Category    string
	Notes       string
	TotalValue  decimal.Decimal
	SignedDate  time.Time
	Status      ContractStatus
	ImportID    *uuid.UUID
}

// NewContract creates a new active contract
func NewContract(tenantID uuid.UUID, clientName, projectName string, totalValue decimal.Decimal, signedDate time.Time) (*Contract, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	clientName = strings.TrimSpace(clientName)
	projectName = strings.TrimSpace(projectName)
	if clientName == "" && projectName == "" {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract needs a client or a project name")
	}
	if len(clientName) > 200 || len(projectName) > 200 {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Client and project names cannot exceed 200 characters")
	}
	if !totalValue.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total value must be positive")
	}
	if signedDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Signed date is required")
	}

	return &Contract{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ClientName:   clientName,
		ProjectName:  projectName,
		TotalValue:   totalValue.Round(2),
		SignedDate:   signedDate,
		Status:       ContractStatusActive,
	}, nil
}

// SetStatus changes the contract status
func (c *Contract) SetStatus(status ContractStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Contract status is not valid")
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

// DisplayName is the label used when matching free-text references.
func (c *Contract) DisplayName() string {
	switch {
	case c.ClientName == "":
		return c.ProjectName
	case c.ProjectName == "":
		return c.ClientName
	default:
		return c.ClientName + " " + c.ProjectName
	}
}
