package persistence

import (
	"context"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/models"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportHistoryRepository implements ImportHistoryRepository using GORM
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// FindByID finds an import history by ID
func (r *GormImportHistoryRepository) FindByID(ctx context.Context, scope shared.TeamScope, id uuid.UUID) (*bulk.ImportHistory, error) {
	var model models.ImportHistoryModel
	if err := tenant.NewTenantDB(r.db).For(ctx, scope).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of import histories, most recent first
func (r *GormImportHistoryRepository) FindAll(
	ctx context.Context,
	scope shared.TeamScope,
	filter bulk.ImportHistoryFilter,
) (shared.Paginated[*bulk.ImportHistory], error) {
	page := filter.Pagination.Normalize()
	if err := filter.Validate(); err != nil {
		return shared.Paginated[*bulk.ImportHistory]{}, err
	}

	query := tenant.NewTenantDB(r.db).For(ctx, scope).Model(&models.ImportHistoryModel{})
	query = r.applyFilters(query, filter)

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return shared.Paginated[*bulk.ImportHistory]{}, translateError(err)
	}

	var historyModels []models.ImportHistoryModel
	if err := query.
		Order("started_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&historyModels).Error; err != nil {
		return shared.Paginated[*bulk.ImportHistory]{}, translateError(err)
	}

	histories := make([]*bulk.ImportHistory, len(historyModels))
	for i := range historyModels {
		histories[i] = historyModels[i].ToDomain()
	}
	return shared.NewPaginated(histories, totalCount, page.Page, page.PageSize), nil
}

// Save saves an import history (create or update)
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	model := models.ImportHistoryModelFromDomain(history)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// applyFilters applies filter options to the query
func (r *GormImportHistoryRepository) applyFilters(query *gorm.DB, filter bulk.ImportHistoryFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FileName != "" {
		query = query.Where("LOWER(file_name) LIKE ? ESCAPE '\\'", likeFold(filter.FileName))
	}
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.StartedFrom != nil {
		query = query.Where("started_at >= ?", *filter.StartedFrom)
	}
	if filter.StartedTo != nil {
		query = query.Where("started_at <= ?", *filter.StartedTo)
	}
	return query
}

// Compile-time interface compliance check
var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
