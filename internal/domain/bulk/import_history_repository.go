package bulk

import (
	"context"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ImportHistoryFilter defines the filters for querying import histories
type ImportHistoryFilter struct {
	Status      ImportStatus // Filter by status
	FileName    string       // Case-insensitive substring of the file name
	SessionID   string       // Filter by upload session
	StartedFrom *time.Time   // Filter by start time (from)
	StartedTo   *time.Time   // Filter by start time (to)
	shared.Pagination
}

// Validate checks the filter before it reaches the query builder
func (f ImportHistoryFilter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return shared.NewDomainError("INVALID_FILTER", "Unknown import status")
	}
	if f.StartedFrom != nil && f.StartedTo != nil && f.StartedFrom.After(*f.StartedTo) {
		return shared.NewDomainError("INVALID_FILTER", "Date range start must not be after its end")
	}
	return nil
}

// ImportHistoryRepository defines the interface for import history persistence
type ImportHistoryRepository interface {
	// FindByID finds an import history by ID
	FindByID(ctx context.Context, scope shared.TeamScope, id uuid.UUID) (*ImportHistory, error)

	// FindAll returns a page of import histories for the team, newest first
	FindAll(ctx context.Context, scope shared.TeamScope, filter ImportHistoryFilter) (shared.Paginated[*ImportHistory], error)

	// Save saves an import history (create or update)
	Save(ctx context.Context, history *ImportHistory) error
}
