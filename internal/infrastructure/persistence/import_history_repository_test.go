package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormImportHistoryRepository_SaveAndFind(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormImportHistoryRepository(db)
	ctx := context.Background()
	scope := newScope()

	history, err := bulk.NewImportHistory(scope, "planilha.xlsx", 4096, "application/octet-stream")
	require.NoError(t, err)
	history.SessionID = "sess-1"
	require.NoError(t, repo.Save(ctx, history))

	require.NoError(t, history.Finish(bulk.ImportCounts{ContractsCreated: 4, ExpensesCreated: 7}, []string{"row 9: not a valid date"}, true))
	history.SetArchiveKey(bulk.ArchiveKeyFor(scope.TenantID, history.ID, history.FileName))
	require.NoError(t, repo.Save(ctx, history))

	found, err := repo.FindByID(ctx, scope, history.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.ImportStatusPartial, found.Status)
	assert.Equal(t, 4, found.Counts.ContractsCreated)
	assert.Equal(t, 7, found.Counts.ExpensesCreated)
	assert.Equal(t, []string{"row 9: not a valid date"}, found.ErrorDetails)
	assert.Equal(t, history.ArchiveKey, found.ArchiveKey)
	assert.NotNil(t, found.CompletedAt)

	t.Run("other tenants cannot read it", func(t *testing.T) {
		_, err := repo.FindByID(ctx, newScope(), history.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, scope, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormImportHistoryRepository_FindAll(t *testing.T) {
	db := setupFinanceTestDB(t)
	repo := NewGormImportHistoryRepository(db)
	ctx := context.Background()
	scope := newScope()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"jan.csv", "fev.csv", "mar.xlsx", "abr.xlsx", "contratos.pdf"} {
		h, err := bulk.NewImportHistory(scope, name, int64(100*i), "")
		require.NoError(t, err)
		h.StartedAt = base.Add(time.Duration(i) * time.Hour)
		success := i != 4
		require.NoError(t, h.Finish(bulk.ImportCounts{ExpensesCreated: i}, nil, success))
		require.NoError(t, repo.Save(ctx, h))
	}

	t.Run("newest first with totals", func(t *testing.T) {
		page, err := repo.FindAll(ctx, scope, bulk.ImportHistoryFilter{Pagination: shared.Pagination{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "contratos.pdf", page.Items[0].FileName)
		assert.Equal(t, "abr.xlsx", page.Items[1].FileName)
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := repo.FindAll(ctx, scope, bulk.ImportHistoryFilter{Status: bulk.ImportStatusPartial})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "contratos.pdf", page.Items[0].FileName)
	})

	t.Run("file name filter", func(t *testing.T) {
		page, err := repo.FindAll(ctx, scope, bulk.ImportHistoryFilter{FileName: ".XLSX"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("started range", func(t *testing.T) {
		from := base.Add(90 * time.Minute)
		to := base.Add(3 * time.Hour)
		page, err := repo.FindAll(ctx, scope, bulk.ImportHistoryFilter{StartedFrom: &from, StartedTo: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := repo.FindAll(ctx, scope, bulk.ImportHistoryFilter{Status: "queued"})
		assert.Error(t, err)
	})
}
