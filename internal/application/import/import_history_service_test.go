package importapp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestImportHistoryService_StartHistory(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	svc := NewImportHistoryService(repo)
	scope := shared.TeamScope{TenantID: uuid.New(), UserID: uuid.New()}

	repo.On("Save", mock.Anything, mock.MatchedBy(func(h *bulk.ImportHistory) bool {
		return h.FileName == "obras.xlsx" && h.Status == bulk.ImportStatusProcessing && h.SessionID == "s1"
	})).Return(nil)

	history, err := svc.StartHistory(context.Background(), scope, "obras.xlsx", 2048, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "s1")

	require.NoError(t, err)
	assert.Equal(t, scope.TenantID, history.TenantID)
	assert.Equal(t, scope.UserID, *history.CreatedBy)
	assert.Equal(t, int64(2048), history.FileSize)
	repo.AssertExpectations(t)
}

func TestImportHistoryService_StartHistory_Errors(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	svc := NewImportHistoryService(repo)
	scope := shared.TeamScope{TenantID: uuid.New()}

	_, err := svc.StartHistory(context.Background(), scope, "", 10, "text/csv", "")
	assert.Error(t, err)

	_, err = svc.StartHistory(context.Background(), shared.TeamScope{}, "a.csv", 10, "text/csv", "")
	assert.Error(t, err)

	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	_, err = svc.StartHistory(context.Background(), scope, "a.csv", 10, "text/csv", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save import history")
}

func TestImportHistoryService_FinishHistory(t *testing.T) {
	scope := shared.TeamScope{TenantID: uuid.New()}

	tests := []struct {
		name   string
		result func() extraction.CommitResult
		want   bulk.ImportStatus
	}{
		{
			name: "clean commit is completed",
			result: func() extraction.CommitResult {
				r := extraction.NewCommitResult()
				r.ContractsCreated = 2
				return r
			},
			want: bulk.ImportStatusCompleted,
		},
		{
			name: "row errors make it partial",
			result: func() extraction.CommitResult {
				r := extraction.NewCommitResult()
				r.ReceivablesCreated = 3
				r.AddError("receivable (a.csv, row 4): amount: is required")
				return r
			},
			want: bulk.ImportStatusPartial,
		},
		{
			name: "systematic failure with writes is partial",
			result: func() extraction.CommitResult {
				r := extraction.NewCommitResult()
				r.ContractsCreated = 1
				r.Fail("failed to save expenses: %v", "timeout")
				return r
			},
			want: bulk.ImportStatusPartial,
		},
		{
			name: "systematic failure without writes is failed",
			result: func() extraction.CommitResult {
				r := extraction.NewCommitResult()
				r.Fail("a.pdf: AI extraction failed")
				return r
			},
			want: bulk.ImportStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockImportHistoryRepository)
			repo.On("Save", mock.Anything, mock.Anything).Return(nil)
			svc := NewImportHistoryService(repo)

			history, err := bulk.NewImportHistory(scope, "a.csv", 10, "text/csv")
			require.NoError(t, err)

			result := tt.result()
			require.NoError(t, svc.FinishHistory(context.Background(), history, result))
			assert.Equal(t, tt.want, history.Status)
			assert.Equal(t, len(result.Errors), history.Counts.ErrorCount)
			assert.NotNil(t, history.CompletedAt)
		})
	}
}

func TestImportHistoryService_FinishHistory_CapsErrors(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	svc := NewImportHistoryService(repo)

	history, err := bulk.NewImportHistory(shared.TeamScope{TenantID: uuid.New()}, "a.csv", 10, "text/csv")
	require.NoError(t, err)

	result := extraction.NewCommitResult()
	result.ExpensesCreated = 1
	for i := range bulk.MaxStoredErrors + 50 {
		result.AddError("row %d: bad amount", i)
	}

	require.NoError(t, svc.FinishHistory(context.Background(), history, result))
	assert.Len(t, history.ErrorDetails, bulk.MaxStoredErrors)
	assert.Equal(t, bulk.MaxStoredErrors+50, history.Counts.ErrorCount)
	assert.Equal(t, fmt.Sprintf("row %d: bad amount", 0), history.ErrorDetails[0])
}

func TestImportHistoryService_FinishHistory_Twice(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	svc := NewImportHistoryService(repo)

	history, err := bulk.NewImportHistory(shared.TeamScope{TenantID: uuid.New()}, "a.csv", 10, "text/csv")
	require.NoError(t, err)

	require.NoError(t, svc.FinishHistory(context.Background(), history, extraction.NewCommitResult()))
	assert.Error(t, svc.FinishHistory(context.Background(), history, extraction.NewCommitResult()))
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestImportHistoryService_ListHistory(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	svc := NewImportHistoryService(repo)
	scope := shared.TeamScope{TenantID: uuid.New()}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	expected := shared.NewPaginated([]*bulk.ImportHistory{}, 0, 2, 10)
	repo.On("FindAll", mock.Anything, scope, bulk.ImportHistoryFilter{
		Status:      bulk.ImportStatusFailed,
		FileName:    "obras",
		StartedFrom: &from,
		StartedTo:   &to,
		Pagination:  shared.Pagination{Page: 2, PageSize: 10},
	}).Return(expected, nil)

	got, err := svc.ListHistory(context.Background(), scope, ListHistoryFilter{
		Status:      "failed",
		FileName:    "obras",
		StartedFrom: &from,
		StartedTo:   &to,
	}, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, expected, got)

	_, err = svc.ListHistory(context.Background(), scope, ListHistoryFilter{StartedFrom: &to, StartedTo: &from}, 1, 10)
	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "FindAll", 1)
}

func TestImportHistoryService_GetHistory(t *testing.T) {
	repo := new(MockImportHistoryRepository)
	svc := NewImportHistoryService(repo)
	scope := shared.TeamScope{TenantID: uuid.New()}
	id := uuid.New()

	repo.On("FindByID", mock.Anything, scope, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetHistory(context.Background(), scope, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
