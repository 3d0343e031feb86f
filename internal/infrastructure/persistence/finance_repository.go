package persistence

import (
	"context"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/finance"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/models"
	"github.com/arqcashflow/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// insertBatchSize bounds the rows sent in one INSERT statement
const insertBatchSize = 200

// insertAll writes rows in a single transaction after checking every row
// belongs to the scope's tenant. Any failure rolls the whole batch back.
func insertAll[M any](ctx context.Context, db *gorm.DB, scope shared.TeamScope, tenantIDs []uuid.UUID, rows []*M) error {
	if err := tenant.Owns(scope, tenantIDs...); err != nil {
		return translateError(err)
	}
	if len(rows) == 0 {
		return nil
	}
	err := tenant.NewTenantDB(db).Transaction(ctx, scope, func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	return translateError(err)
}

// likeFold builds a case-insensitive substring pattern that works on both
// Postgres and SQLite.
func likeFold(value string) string {
	value = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(strings.TrimSpace(value)))
	return "%" + value + "%"
}

func applyDateRange(query *gorm.DB, column string, r finance.DateRange) *gorm.DB {
	if r.From != nil {
		query = query.Where(column+" >= ?", *r.From)
	}
	if r.To != nil {
		query = query.Where(column+" <= ?", *r.To)
	}
	return query
}

func paginate(query *gorm.DB, p shared.Pagination) *gorm.DB {
	p = p.Normalize()
	return query.Offset(p.Offset()).Limit(p.PageSize)
}

// GormContractRepository implements ContractRepository using GORM
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// Create stores one contract
func (r *GormContractRepository) Create(ctx context.Context, scope shared.TeamScope, contract *finance.Contract) error {
	return r.CreateBatch(ctx, scope, []*finance.Contract{contract})
}

// CreateBatch stores contracts atomically
func (r *GormContractRepository) CreateBatch(ctx context.Context, scope shared.TeamScope, contracts []*finance.Contract) error {
	rows := make([]*models.ContractModel, len(contracts))
	tenantIDs := make([]uuid.UUID, len(contracts))
	for i, c := range contracts {
		rows[i] = models.ContractModelFromDomain(c)
		tenantIDs[i] = c.TenantID
	}
	return insertAll(ctx, r.db, scope, tenantIDs, rows)
}

// FindMany returns one page of contracts, oldest signature first
func (r *GormContractRepository) FindMany(ctx context.Context, scope shared.TeamScope, filter finance.ContractFilter) ([]finance.Contract, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return nil, err
	}

	var rows []models.ContractModel
	if err := paginate(query, filter.Pagination).Order("signed_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	contracts := make([]finance.Contract, len(rows))
	for i := range rows {
		contracts[i] = *rows[i].ToDomain()
	}
	return contracts, nil
}

// Count returns how many contracts match the filter
func (r *GormContractRepository) Count(ctx context.Context, scope shared.TeamScope, filter finance.ContractFilter) (int64, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *GormContractRepository) query(ctx context.Context, scope shared.TeamScope, filter finance.ContractFilter) (*gorm.DB, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query := tenant.NewTenantDB(r.db).For(ctx, scope).Model(&models.ContractModel{})
	if filter.ClientName != "" {
		query = query.Where("LOWER(client_name) LIKE ? ESCAPE '\\'", likeFold(filter.ClientName))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return applyDateRange(query, "signed_date", filter.Signed), nil
}

// GormReceivableRepository implements ReceivableRepository using GORM
type GormReceivableRepository struct {
	db *gorm.DB
}

// NewGormReceivableRepository creates a new GormReceivableRepository
func NewGormReceivableRepository(db *gorm.DB) *GormReceivableRepository {
	return &GormReceivableRepository{db: db}
}

// Create stores one receivable
func (r *GormReceivableRepository) Create(ctx context.Context, scope shared.TeamScope, receivable *finance.Receivable) error {
	return r.CreateBatch(ctx, scope, []*finance.Receivable{receivable})
}

// CreateBatch stores receivables atomically
func (r *GormReceivableRepository) CreateBatch(ctx context.Context, scope shared.TeamScope, receivables []*finance.Receivable) error {
	rows := make([]*models.ReceivableModel, len(receivables))
	tenantIDs := make([]uuid.UUID, len(receivables))
	for i, rec := range receivables {
		rows[i] = models.ReceivableModelFromDomain(rec)
		tenantIDs[i] = rec.TenantID
	}
	return insertAll(ctx, r.db, scope, tenantIDs, rows)
}

// FindMany returns one page of receivables ordered by expected date
func (r *GormReceivableRepository) FindMany(ctx context.Context, scope shared.TeamScope, filter finance.ReceivableFilter) ([]finance.Receivable, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return nil, err
	}

	var rows []models.ReceivableModel
	if err := paginate(query, filter.Pagination).Order("expected_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	receivables := make([]finance.Receivable, len(rows))
	for i := range rows {
		receivables[i] = *rows[i].ToDomain()
	}
	return receivables, nil
}

// Count returns how many receivables match the filter
func (r *GormReceivableRepository) Count(ctx context.Context, scope shared.TeamScope, filter finance.ReceivableFilter) (int64, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *GormReceivableRepository) query(ctx context.Context, scope shared.TeamScope, filter finance.ReceivableFilter) (*gorm.DB, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query := tenant.NewTenantDB(r.db).For(ctx, scope).Model(&models.ReceivableModel{})
	if filter.ClientName != "" {
		query = query.Where("LOWER(client_name) LIKE ? ESCAPE '\\'", likeFold(filter.ClientName))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return applyDateRange(query, "expected_date", filter.Expected), nil
}

// GormExpenseRepository implements ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// Create stores one expense
func (r *GormExpenseRepository) Create(ctx context.Context, scope shared.TeamScope, expense *finance.Expense) error {
	return r.CreateBatch(ctx, scope, []*finance.Expense{expense})
}

// CreateBatch stores expenses atomically
func (r *GormExpenseRepository) CreateBatch(ctx context.Context, scope shared.TeamScope, expenses []*finance.Expense) error {
	rows := make([]*models.ExpenseModel, len(expenses))
	tenantIDs := make([]uuid.UUID, len(expenses))
	for i, e := range expenses {
		rows[i] = models.ExpenseModelFromDomain(e)
		tenantIDs[i] = e.TenantID
	}
	return insertAll(ctx, r.db, scope, tenantIDs, rows)
}

// FindMany returns one page of expenses ordered by due date
func (r *GormExpenseRepository) FindMany(ctx context.Context, scope shared.TeamScope, filter finance.ExpenseFilter) ([]finance.Expense, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return nil, err
	}

	var rows []models.ExpenseModel
	if err := paginate(query, filter.Pagination).Order("due_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	expenses := make([]finance.Expense, len(rows))
	for i := range rows {
		expenses[i] = *rows[i].ToDomain()
	}
	return expenses, nil
}

// Count returns how many expenses match the filter
func (r *GormExpenseRepository) Count(ctx context.Context, scope shared.TeamScope, filter finance.ExpenseFilter) (int64, error) {
	query, err := r.query(ctx, scope, filter)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *GormExpenseRepository) query(ctx context.Context, scope shared.TeamScope, filter finance.ExpenseFilter) (*gorm.DB, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query := tenant.NewTenantDB(r.db).For(ctx, scope).Model(&models.ExpenseModel{})
	if filter.Vendor != "" {
		query = query.Where("LOWER(vendor) LIKE ? ESCAPE '\\'", likeFold(filter.Vendor))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return applyDateRange(query, "due_date", filter.Due), nil
}

// Compile-time interface compliance checks
var (
	_ finance.ContractRepository   = (*GormContractRepository)(nil)
	_ finance.ReceivableRepository = (*GormReceivableRepository)(nil)
	_ finance.ExpenseRepository    = (*GormExpenseRepository)(nil)
)
