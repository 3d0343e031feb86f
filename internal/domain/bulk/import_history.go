package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportStatus represents the status of an import operation
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusPartial    ImportStatus = "partial"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusProcessing, ImportStatusCompleted, ImportStatusPartial, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusPartial || s == ImportStatusFailed
}

// ImportCounts holds what a single file produced
type ImportCounts struct {
	ContractsCreated   int `json:"contracts_created"`
	ReceivablesCreated int `json:"receivables_created"`
	ExpensesCreated    int `json:"expenses_created"`
	DuplicatesSkipped  int `json:"duplicates_skipped"`
	ErrorCount         int `json:"error_count"`
}

// Created is the number of records written across all types.
func (c ImportCounts) Created() int {
	return c.ContractsCreated + c.ReceivablesCreated + c.ExpensesCreated
}

// ImportHistory records one processed source file
type ImportHistory struct {
	shared.TenantEntity
	FileName     string       `json:"file_name"`
	FileSize     int64        `json:"file_size"`
	ContentType  string       `json:"content_type"`
	SessionID    string       `json:"session_id,omitempty"`
	Status       ImportStatus `json:"status"`
	Counts       ImportCounts `json:"counts"`
	ErrorDetails []string     `json:"error_details,omitempty"`
	ArchiveKey   string       `json:"archive_key,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// MaxStoredErrors caps the error details kept on a history record.
const MaxStoredErrors = 200

// NewImportHistory starts a history record in the processing state
func NewImportHistory(scope shared.TeamScope, fileName string, fileSize int64, contentType string) (*ImportHistory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}

	entity := shared.NewTenantEntityWithCreator(scope.TenantID, scope.UserID)
	return &ImportHistory{
		TenantEntity: entity,
		FileName:     fileName,
		FileSize:     fileSize,
		ContentType:  contentType,
		Status:       ImportStatusProcessing,
		ErrorDetails: make([]string, 0),
		StartedAt:    entity.CreatedAt,
	}, nil
}

// Finish records the outcome of the file. A systematic failure with nothing
// written is failed, errors alongside written records are partial.
func (h *ImportHistory) Finish(counts ImportCounts, errs []string, success bool) error {
	if h.Status != ImportStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finish import from state: %s", h.Status))
	}

	if len(errs) > MaxStoredErrors {
		errs = errs[:MaxStoredErrors]
	}
	counts.ErrorCount = max(counts.ErrorCount, len(errs))

	switch {
	case !success && counts.Created() == 0:
		h.Status = ImportStatusFailed
	case !success || counts.ErrorCount > 0:
		h.Status = ImportStatusPartial
	default:
		h.Status = ImportStatusCompleted
	}

	h.Counts = counts
	h.ErrorDetails = append(make([]string, 0, len(errs)), errs...)
	now := time.Now()
	h.CompletedAt = &now
	h.UpdatedAt = now
	return nil
}

// SetArchiveKey remembers where the source bytes were stored
func (h *ImportHistory) SetArchiveKey(key string) {
	h.ArchiveKey = key
	h.UpdatedAt = time.Now()
}

// ArchiveKeyFor builds the object key for an archived source file.
func ArchiveKeyFor(tenantID, historyID uuid.UUID, fileName string) string {
	return fmt.Sprintf("imports/%s/%s/%s", tenantID, historyID, fileName)
}

// HasErrors returns true if there are any errors
func (h *ImportHistory) HasErrors() bool {
	return len(h.ErrorDetails) > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	if len(h.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(h.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (h *ImportHistory) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		h.ErrorDetails = make([]string, 0)
		return nil
	}
	var details []string
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	h.ErrorDetails = details
	return nil
}

// Duration returns how long the file took to process
func (h *ImportHistory) Duration() time.Duration {
	if h.CompletedAt == nil {
		return time.Since(h.StartedAt)
	}
	return h.CompletedAt.Sub(h.StartedAt)
}
