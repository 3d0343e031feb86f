package bulk

import (
	"fmt"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() shared.TeamScope {
	return shared.TeamScope{TenantID: uuid.New(), UserID: uuid.New()}
}

func createTestHistory(t *testing.T) *ImportHistory {
	t.Helper()
	history, err := NewImportHistory(testScope(), "contratos.xlsx", 2048, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	return history
}

func TestImportStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status ImportStatus
		want   bool
	}{
		{"processing", ImportStatusProcessing, true},
		{"completed", ImportStatusCompleted, true},
		{"partial", ImportStatusPartial, true},
		{"failed", ImportStatusFailed, true},
		{"invalid", ImportStatus("invalid"), false},
		{"empty", ImportStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestImportStatus_IsTerminal(t *testing.T) {
	assert.False(t, ImportStatusProcessing.IsTerminal())
	assert.True(t, ImportStatusCompleted.IsTerminal())
	assert.True(t, ImportStatusPartial.IsTerminal())
	assert.True(t, ImportStatusFailed.IsTerminal())
}

func TestNewImportHistory(t *testing.T) {
	scope := testScope()

	t.Run("success", func(t *testing.T) {
		history, err := NewImportHistory(scope, "contratos.csv", 1024, "text/csv")

		require.NoError(t, err)
		assert.Equal(t, scope.TenantID, history.TenantID)
		require.NotNil(t, history.CreatedBy)
		assert.Equal(t, scope.UserID, *history.CreatedBy)
		assert.Equal(t, "contratos.csv", history.FileName)
		assert.Equal(t, int64(1024), history.FileSize)
		assert.Equal(t, ImportStatusProcessing, history.Status)
		assert.NotEqual(t, uuid.Nil, history.ID)
		assert.False(t, history.StartedAt.IsZero())
	})

	t.Run("missing tenant", func(t *testing.T) {
		_, err := NewImportHistory(shared.TeamScope{}, "contratos.csv", 1024, "text/csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Tenant ID cannot be empty")
	})

	t.Run("empty file name", func(t *testing.T) {
		_, err := NewImportHistory(scope, "", 1024, "text/csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "File name cannot be empty")
	})

	t.Run("negative file size", func(t *testing.T) {
		_, err := NewImportHistory(scope, "contratos.csv", -1, "text/csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "File size cannot be negative")
	})
}

func TestImportHistory_Finish(t *testing.T) {
	t.Run("completed without errors", func(t *testing.T) {
		history := createTestHistory(t)

		err := history.Finish(ImportCounts{ContractsCreated: 4, ReceivablesCreated: 4, ExpensesCreated: 7}, nil, true)

		require.NoError(t, err)
		assert.Equal(t, ImportStatusCompleted, history.Status)
		assert.Equal(t, 15, history.Counts.Created())
		assert.NotNil(t, history.CompletedAt)
		assert.False(t, history.HasErrors())
	})

	t.Run("partial when some entities failed", func(t *testing.T) {
		history := createTestHistory(t)

		err := history.Finish(ImportCounts{ExpensesCreated: 2}, []string{"expense row 3: Amount must be positive"}, true)

		require.NoError(t, err)
		assert.Equal(t, ImportStatusPartial, history.Status)
		assert.Equal(t, 1, history.Counts.ErrorCount)
	})

	t.Run("partial when a systematic failure left some records", func(t *testing.T) {
		history := createTestHistory(t)

		err := history.Finish(ImportCounts{ContractsCreated: 1}, []string{"AI extraction failed"}, false)

		require.NoError(t, err)
		assert.Equal(t, ImportStatusPartial, history.Status)
	})

	t.Run("failed when nothing was written", func(t *testing.T) {
		history := createTestHistory(t)

		err := history.Finish(ImportCounts{}, []string{"file.docx: unsupported file type"}, false)

		require.NoError(t, err)
		assert.Equal(t, ImportStatusFailed, history.Status)
	})

	t.Run("error details are capped", func(t *testing.T) {
		history := createTestHistory(t)
		errs := make([]string, MaxStoredErrors+50)
		for i := range errs {
			errs[i] = fmt.Sprintf("row %d: bad", i+1)
		}

		require.NoError(t, history.Finish(ImportCounts{ErrorCount: len(errs)}, errs, true))

		assert.Len(t, history.ErrorDetails, MaxStoredErrors)
		assert.Equal(t, MaxStoredErrors+50, history.Counts.ErrorCount)
	})

	t.Run("cannot finish twice", func(t *testing.T) {
		history := createTestHistory(t)
		require.NoError(t, history.Finish(ImportCounts{}, nil, true))

		err := history.Finish(ImportCounts{}, nil, true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot finish import from state")
	})
}

func TestImportHistory_ErrorDetailsJSON(t *testing.T) {
	history := createTestHistory(t)

	empty, err := history.ErrorDetailsJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	history.ErrorDetails = []string{"row 2: not a valid date"}
	data, err := history.ErrorDetailsJSON()
	require.NoError(t, err)

	restored := createTestHistory(t)
	require.NoError(t, restored.SetErrorDetailsFromJSON(data))
	assert.Equal(t, history.ErrorDetails, restored.ErrorDetails)

	require.NoError(t, restored.SetErrorDetailsFromJSON(""))
	assert.Empty(t, restored.ErrorDetails)
	assert.Error(t, restored.SetErrorDetailsFromJSON("{not json"))
}

func TestImportHistory_ArchiveKey(t *testing.T) {
	history := createTestHistory(t)
	key := ArchiveKeyFor(history.TenantID, history.ID, history.FileName)

	history.SetArchiveKey(key)

	assert.Equal(t, fmt.Sprintf("imports/%s/%s/contratos.xlsx", history.TenantID, history.ID), history.ArchiveKey)
}

func TestImportHistory_Duration(t *testing.T) {
	history := createTestHistory(t)
	history.StartedAt = time.Now().Add(-2 * time.Second)
	require.NoError(t, history.Finish(ImportCounts{}, nil, true))

	assert.GreaterOrEqual(t, history.Duration(), 2*time.Second)
}

func TestImportHistoryFilter_Validate(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	assert.NoError(t, ImportHistoryFilter{}.Validate())
	assert.NoError(t, ImportHistoryFilter{Status: ImportStatusPartial}.Validate())
	assert.Error(t, ImportHistoryFilter{Status: "archived"}.Validate())
	assert.Error(t, ImportHistoryFilter{StartedFrom: &from, StartedTo: &to}.Validate())
}
