package importapp

import (
	"context"
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportHistoryService manages import history tracking and retrieval
type ImportHistoryService struct {
	historyRepo bulk.ImportHistoryRepository
}

// NewImportHistoryService creates a new ImportHistoryService
func NewImportHistoryService(historyRepo bulk.ImportHistoryRepository) *ImportHistoryService {
	return &ImportHistoryService{
		historyRepo: historyRepo,
	}
}

// StartHistory creates the processing record for one uploaded file
func (s *ImportHistoryService) StartHistory(
	ctx context.Context,
	scope shared.TeamScope,
	fileName string,
	fileSize int64,
	contentType string,
	sessionID string,
) (*bulk.ImportHistory, error) {
	history, err := bulk.NewImportHistory(scope, fileName, fileSize, contentType)
	if err != nil {
		return nil, err
	}
	history.SessionID = sessionID

	if err := s.historyRepo.Save(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to save import history: %w", err)
	}
	return history, nil
}

// FinishHistory records the commit outcome on the history
func (s *ImportHistoryService) FinishHistory(ctx context.Context, history *bulk.ImportHistory, result extraction.CommitResult) error {
	counts := bulk.ImportCounts{
		ContractsCreated:   result.ContractsCreated,
		ReceivablesCreated: result.ReceivablesCreated,
		ExpensesCreated:    result.ExpensesCreated,
		DuplicatesSkipped:  result.DuplicatesSkipped,
		ErrorCount:         len(result.Errors),
	}
	if err := history.Finish(counts, result.Errors, result.Success); err != nil {
		return err
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		return fmt.Errorf("failed to save import history: %w", err)
	}
	return nil
}

// GetHistory retrieves a specific import history by ID
func (s *ImportHistoryService) GetHistory(ctx context.Context, scope shared.TeamScope, historyID uuid.UUID) (*bulk.ImportHistory, error) {
	return s.historyRepo.FindByID(ctx, scope, historyID)
}

// ListHistoryFilter defines the filter options for listing import histories
type ListHistoryFilter struct {
	Status      string     // Filter by status
	FileName    string     // Substring of the file name
	SessionID   string     // Filter by upload session
	StartedFrom *time.Time // Filter by start time (from)
	StartedTo   *time.Time // Filter by start time (to)
}

// ListHistory retrieves import history with pagination and filtering
func (s *ImportHistoryService) ListHistory(
	ctx context.Context,
	scope shared.TeamScope,
	filter ListHistoryFilter,
	page, pageSize int,
) (shared.Paginated[*bulk.ImportHistory], error) {
	repoFilter := bulk.ImportHistoryFilter{
		Status:      bulk.ImportStatus(filter.Status),
		FileName:    filter.FileName,
		SessionID:   filter.SessionID,
		StartedFrom: filter.StartedFrom,
		StartedTo:   filter.StartedTo,
		Pagination:  shared.Pagination{Page: page, PageSize: pageSize},
	}
	if err := repoFilter.Validate(); err != nil {
		return shared.Paginated[*bulk.ImportHistory]{}, err
	}

	return s.historyRepo.FindAll(ctx, scope, repoFilter)
}
