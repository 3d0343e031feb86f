package models

import (
	"time"

	"github.com/arqcashflow/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractModel is the persistence model for the Contract entity.
type ContractModel struct {
	TenantModel
	ClientName  string                 `gorm:"type:varchar(200);not null;default:'';index"`
	ProjectName string                 `gorm:"type:varchar(200);not null;default:''"`
	Description string                 `gorm:"type:text"`
	Category    string                 `gorm:"type:varchar(100)"`
	Notes       string                 `gorm:"type:text"`
	TotalValue  decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	SignedDate  time.Time              `gorm:"type:date;not null;index"`
	Status      finance.ContractStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	ImportID    *uuid.UUID             `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ContractModel) TableName() string {
	return "contracts"
}

// ToDomain converts the persistence model to a domain Contract entity.
func (m *ContractModel) ToDomain() *finance.Contract {
	return &finance.Contract{
		TenantEntity: m.ToTenantEntity(),
		ClientName:   m.ClientName,
		ProjectName:  m.ProjectName,
		Description:  m.Description,
		Category:     m.Category,
		Notes:        m.Notes,
		TotalValue:   m.TotalValue,
		SignedDate:   m.SignedDate,
		Status:       m.Status,
		ImportID:     m.ImportID,
	}
}

// FromDomain populates the persistence model from a domain Contract entity.
func (m *ContractModel) FromDomain(c *finance.Contract) {
	m.FromDomainTenantEntity(c.TenantEntity)
	m.ClientName = c.ClientName
	m.ProjectName = c.ProjectName
	m.Description = c.Description
	m.Category = c.Category
	m.Notes = c.Notes
	m.TotalValue = c.TotalValue
	m.SignedDate = c.SignedDate
	m.Status = c.Status
	m.ImportID = c.ImportID
}

// ContractModelFromDomain creates a new persistence model from a domain Contract entity.
func ContractModelFromDomain(c *finance.Contract) *ContractModel {
	m := &ContractModel{}
	m.FromDomain(c)
	return m
}

// ReceivableModel is the persistence model for the Receivable entity.
type ReceivableModel struct {
	TenantModel
	ContractID     *uuid.UUID               `gorm:"type:uuid;index"`
	ClientName     string                   `gorm:"type:varchar(200);not null;default:'';index"`
	Description    string                   `gorm:"type:text"`
	Category       string                   `gorm:"type:varchar(100)"`
	InvoiceNumber  string                   `gorm:"type:varchar(100)"`
	Notes          string                   `gorm:"type:text"`
	Amount         decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	ExpectedDate   time.Time                `gorm:"type:date;not null;index"`
	Status         finance.ReceivableStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReceivedDate   *time.Time               `gorm:"type:date"`
	ReceivedAmount *decimal.Decimal         `gorm:"type:decimal(18,2)"`
	ImportID       *uuid.UUID               `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ReceivableModel) TableName() string {
	return "receivables"
}

// ToDomain converts the persistence model to a domain Receivable entity.
func (m *ReceivableModel) ToDomain() *finance.Receivable {
	return &finance.Receivable{
		TenantEntity:   m.ToTenantEntity(),
		ContractID:     m.ContractID,
		ClientName:     m.ClientName,
		Description:    m.Description,
		Category:       m.Category,
		InvoiceNumber:  m.InvoiceNumber,
		Notes:          m.Notes,
		Amount:         m.Amount,
		ExpectedDate:   m.ExpectedDate,
		Status:         m.Status,
		ReceivedDate:   m.ReceivedDate,
		ReceivedAmount: m.ReceivedAmount,
		ImportID:       m.ImportID,
	}
}

// FromDomain populates the persistence model from a domain Receivable entity.
func (m *ReceivableModel) FromDomain(r *finance.Receivable) {
	m.FromDomainTenantEntity(r.TenantEntity)
	m.ContractID = r.ContractID
	m.ClientName = r.ClientName
	m.Description = r.Description
	m.Category = r.Category
	m.InvoiceNumber = r.InvoiceNumber
	m.Notes = r.Notes
	m.Amount = r.Amount
	m.ExpectedDate = r.ExpectedDate
	m.Status = r.Status
	m.ReceivedDate = r.ReceivedDate
	m.ReceivedAmount = r.ReceivedAmount
	m.ImportID = r.ImportID
}

// ReceivableModelFromDomain creates a new persistence model from a domain Receivable entity.
func ReceivableModelFromDomain(r *finance.Receivable) *ReceivableModel {
	m := &ReceivableModel{}
	m.FromDomain(r)
	return m
}

// ExpenseModel is the persistence model for the Expense entity.
type ExpenseModel struct {
	TenantModel
	ContractID    *uuid.UUID            `gorm:"type:uuid;index"`
	Description   string                `gorm:"type:varchar(500);not null"`
	Vendor        string                `gorm:"type:varchar(200);not null;default:'';index"`
	Category      string                `gorm:"type:varchar(100)"`
	InvoiceNumber string                `gorm:"type:varchar(100)"`
	Notes         string                `gorm:"type:text"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	DueDate       time.Time             `gorm:"type:date;not null;index"`
	Status        finance.ExpenseStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidDate      *time.Time            `gorm:"type:date"`
	ImportID      *uuid.UUID            `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the persistence model to a domain Expense entity.
func (m *ExpenseModel) ToDomain() *finance.Expense {
	return &finance.Expense{
		TenantEntity:  m.ToTenantEntity(),
		ContractID:    m.ContractID,
		Description:   m.Description,
		Vendor:        m.Vendor,
		Category:      m.Category,
		InvoiceNumber: m.InvoiceNumber,
		Notes:         m.Notes,
		Amount:        m.Amount,
		DueDate:       m.DueDate,
		Status:        m.Status,
		PaidDate:      m.PaidDate,
		ImportID:      m.ImportID,
	}
}

// FromDomain populates the persistence model from a domain Expense entity.
func (m *ExpenseModel) FromDomain(e *finance.Expense) {
	m.FromDomainTenantEntity(e.TenantEntity)
	m.ContractID = e.ContractID
	m.Description = e.Description
	m.Vendor = e.Vendor
	m.Category = e.Category
	m.InvoiceNumber = e.InvoiceNumber
	m.Notes = e.Notes
	m.Amount = e.Amount
	m.DueDate = e.DueDate
	m.Status = e.Status
	m.PaidDate = e.PaidDate
	m.ImportID = e.ImportID
}

// ExpenseModelFromDomain creates a new persistence model from a domain Expense entity.
func ExpenseModelFromDomain(e *finance.Expense) *ExpenseModel {
	m := &ExpenseModel{}
	m.FromDomain(e)
	return m
}
