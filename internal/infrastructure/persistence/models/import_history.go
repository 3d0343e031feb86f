package models

import (
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
)

// ImportHistoryModel is the persistence model for the ImportHistory domain entity.
type ImportHistoryModel struct {
	TenantModel
	FileName           string            `gorm:"type:varchar(255);not null"`
	FileSize           int64             `gorm:"not null;default:0"`
	ContentType        string            `gorm:"type:varchar(150)"`
	SessionID          string            `gorm:"type:varchar(100);index"`
	Status             bulk.ImportStatus `gorm:"type:varchar(20);not null;default:'processing';index"`
	ContractsCreated   int               `gorm:"not null;default:0"`
	ReceivablesCreated int               `gorm:"not null;default:0"`
	ExpensesCreated    int               `gorm:"not null;default:0"`
	DuplicatesSkipped  int               `gorm:"not null;default:0"`
	ErrorCount         int               `gorm:"not null;default:0"`
	ErrorDetails       string            `gorm:"type:jsonb;default:'[]'"`
	ArchiveKey         string            `gorm:"type:varchar(500)"`
	StartedAt          time.Time         `gorm:"not null;index"`
	CompletedAt        *time.Time
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

// ToDomain converts the persistence model to a domain ImportHistory entity.
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	history := &bulk.ImportHistory{
		TenantEntity: m.ToTenantEntity(),
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		ContentType:  m.ContentType,
		SessionID:    m.SessionID,
		Status:       m.Status,
		Counts: bulk.ImportCounts{
			ContractsCreated:   m.ContractsCreated,
			ReceivablesCreated: m.ReceivablesCreated,
			ExpensesCreated:    m.ExpensesCreated,
			DuplicatesSkipped:  m.DuplicatesSkipped,
			ErrorCount:         m.ErrorCount,
		},
		ArchiveKey:  m.ArchiveKey,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}

	// Unreadable details are dropped rather than failing the listing
	if err := history.SetErrorDetailsFromJSON(m.ErrorDetails); err != nil {
		history.ErrorDetails = []string{}
	}

	return history
}

// FromDomain populates the persistence model from a domain ImportHistory entity.
func (m *ImportHistoryModel) FromDomain(h *bulk.ImportHistory) {
	m.FromDomainTenantEntity(h.TenantEntity)
	m.FileName = h.FileName
	m.FileSize = h.FileSize
	m.ContentType = h.ContentType
	m.SessionID = h.SessionID
	m.Status = h.Status
	m.ContractsCreated = h.Counts.ContractsCreated
	m.ReceivablesCreated = h.Counts.ReceivablesCreated
	m.ExpensesCreated = h.Counts.ExpensesCreated
	m.DuplicatesSkipped = h.Counts.DuplicatesSkipped
	m.ErrorCount = h.Counts.ErrorCount
	m.ArchiveKey = h.ArchiveKey
	m.StartedAt = h.StartedAt
	m.CompletedAt = h.CompletedAt

	if errorJSON, err := h.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
}

// ImportHistoryModelFromDomain creates a new persistence model from a domain ImportHistory entity.
func ImportHistoryModelFromDomain(h *bulk.ImportHistory) *ImportHistoryModel {
	m := &ImportHistoryModel{}
	m.FromDomain(h)
	return m
}
