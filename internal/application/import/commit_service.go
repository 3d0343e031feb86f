package importapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/finance"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/fuzzy"
	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLinkThreshold is the minimum score for tying a receivable or
// expense to a contract.
const DefaultLinkThreshold = fuzzy.DefaultThreshold

// loadPageSize is the page size used when reading existing records.
const loadPageSize = shared.MaxPageSize

// CommitConfig tunes reconciliation
type CommitConfig struct {
	Dedup         DedupPolicy
	LinkThreshold float64
}

// DefaultCommitConfig returns the default reconciliation thresholds
func DefaultCommitConfig() CommitConfig {
	return CommitConfig{Dedup: DefaultDedupPolicy(), LinkThreshold: DefaultLinkThreshold}
}

// CommitOption adjusts a single Commit call
type CommitOption func(*commitOptions)

type commitOptions struct {
	importID *uuid.UUID
}

// WithImportID tags every written record with the import history it came from
func WithImportID(id uuid.UUID) CommitOption {
	return func(o *commitOptions) {
		o.importID = &id
	}
}

// CommitService validates extracted entities, drops duplicates, links
// receivables and expenses to contracts and writes them per type.
type CommitService struct {
	contracts   finance.ContractRepository
	receivables finance.ReceivableRepository
	expenses    finance.ExpenseRepository
	validate    *validator.Validate
	metrics     *telemetry.ImportMetrics
	logger      *zap.Logger
	cfg         CommitConfig
}

// NewCommitService creates a new CommitService
func NewCommitService(
	contracts finance.ContractRepository,
	receivables finance.ReceivableRepository,
	expenses finance.ExpenseRepository,
	cfg CommitConfig,
	metrics *telemetry.ImportMetrics,
	logger *zap.Logger,
) *CommitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultCommitConfig()
	if cfg.Dedup.Threshold <= 0 {
		cfg.Dedup.Threshold = defaults.Dedup.Threshold
	}
	if cfg.Dedup.ValueTolerance <= 0 {
		cfg.Dedup.ValueTolerance = defaults.Dedup.ValueTolerance
	}
	if cfg.LinkThreshold <= 0 {
		cfg.LinkThreshold = defaults.LinkThreshold
	}
	return &CommitService{
		contracts:   contracts,
		receivables: receivables,
		expenses:    expenses,
		validate:    NewInputValidator(),
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// candidate is a validated record waiting to be written.
type candidate[T any] struct {
	label     string
	reference string
	record    T
}

// Commit writes the entities for one file. It never returns an error:
// row problems become error strings, and systematic failures also clear
// Success.
func (s *CommitService) Commit(ctx context.Context, entities []extraction.ExtractedEntity, scope shared.TeamScope, opts ...CommitOption) extraction.CommitResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "commit")
	defer span.End()

	var o commitOptions
	for _, opt := range opts {
		opt(&o)
	}

	result := extraction.NewCommitResult()
	if err := scope.Validate(); err != nil {
		result.Fail("invalid team scope: %v", err)
		return result
	}

	contracts, receivables, expenses := s.prepare(entities, scope, o.importID, &result)
	rejected := len(result.Errors)
	if len(contracts)+len(receivables)+len(expenses) == 0 {
		s.metrics.RecordEntityErrors(ctx, rejected)
		return result
	}

	linkPool := s.commitContracts(ctx, scope, contracts, &result)
	links := fuzzy.NewIndex(linkPool, (*finance.Contract).DisplayName)
	s.commitReceivables(ctx, scope, receivables, links, &result)
	s.commitExpenses(ctx, scope, expenses, links, &result)

	s.metrics.RecordEntityErrors(ctx, len(result.Errors))
	s.metrics.RecordDuplicates(ctx, result.DuplicatesSkipped)
	telemetry.SetAttributes(span,
		"commit.entities", len(entities),
		"commit.rejected", rejected,
		"commit.created", result.TotalCreated(),
		"commit.duplicates", result.DuplicatesSkipped,
		"commit.success", result.Success,
	)
	if !result.Success {
		telemetry.RecordError(span, errors.New("commit finished with systematic failures"))
	}
	return result
}

// prepare validates every entity and builds the domain records.
func (s *CommitService) prepare(
	entities []extraction.ExtractedEntity,
	scope shared.TeamScope,
	importID *uuid.UUID,
	result *extraction.CommitResult,
) ([]candidate[*finance.Contract], []candidate[*finance.Receivable], []candidate[*finance.Expense]) {
	var (
		contracts   []candidate[*finance.Contract]
		receivables []candidate[*finance.Receivable]
		expenses    []candidate[*finance.Expense]
	)

	for _, entity := range entities {
		label := entity.Label()
		switch entity.Type {
		case extraction.EntityContract:
			in := contractInputFrom(entity.Data)
			if err := s.validate.Struct(in); err != nil {
				result.AddError("%s: %s", label, describeValidation(err))
				continue
			}
			c, err := in.toContract(scope)
			if err != nil {
				result.AddError("%s: %v", label, err)
				continue
			}
			c.ImportID = importID
			contracts = append(contracts, candidate[*finance.Contract]{label: label, record: c})

		case extraction.EntityReceivable:
			in := receivableInputFrom(entity.Data)
			if err := s.validate.Struct(in); err != nil {
				result.AddError("%s: %s", label, describeValidation(err))
				continue
			}
			r, err := in.toReceivable(scope)
			if err != nil {
				result.AddError("%s: %v", label, err)
				continue
			}
			r.ImportID = importID
			receivables = append(receivables, candidate[*finance.Receivable]{
				label:     label,
				reference: linkReference(in.ClientName, in.ProjectName),
				record:    r,
			})

		case extraction.EntityExpense:
			in := expenseInputFrom(entity.Data)
			if err := s.validate.Struct(in); err != nil {
				result.AddError("%s: %s", label, describeValidation(err))
				continue
			}
			e, err := in.toExpense(scope)
			if err != nil {
				result.AddError("%s: %v", label, err)
				continue
			}
			e.ImportID = importID
			expenses = append(expenses, candidate[*finance.Expense]{
				label:     label,
				reference: linkReference(in.ClientName, in.ProjectName),
				record:    e,
			})

		default:
			result.AddError("%s: unknown entity type %q", label, entity.Type)
		}
	}
	return contracts, receivables, expenses
}

// commitContracts writes new contracts and returns every contract a
// receivable or expense may link to.
func (s *CommitService) commitContracts(ctx context.Context, scope shared.TeamScope, items []candidate[*finance.Contract], result *extraction.CommitResult) []*finance.Contract {
	existing, err := loadAll(func(page int) ([]finance.Contract, error) {
		return s.contracts.FindMany(ctx, scope, finance.ContractFilter{
			Pagination: shared.Pagination{Page: page, PageSize: loadPageSize},
		})
	})
	if err != nil {
		s.logger.Error("Failed to load existing contracts", zap.Error(err))
		if len(items) > 0 {
			result.Fail("failed to load existing contracts: %v", err)
		}
		return nil
	}

	known := make([]*finance.Contract, 0, len(existing))
	for i := range existing {
		known = append(known, &existing[i])
	}

	var fresh []candidate[*finance.Contract]
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := contractBatchKey(item.record)
		if seen[key] || containsMatch(known, func(c *finance.Contract) bool { return s.cfg.Dedup.SameContract(item.record, c) }) {
			result.DuplicatesSkipped++
			continue
		}
		seen[key] = true
		fresh = append(fresh, item)
	}

	written := writeWithFallback(ctx, s.logger, extraction.EntityContract, fresh,
		func(ctx context.Context, batch []*finance.Contract) error {
			return s.contracts.CreateBatch(ctx, scope, batch)
		},
		func(ctx context.Context, c *finance.Contract) error {
			return s.contracts.Create(ctx, scope, c)
		},
		result,
	)
	s.record(ctx, extraction.EntityContract, len(written), result)

	pool := make([]*finance.Contract, 0, len(existing)+len(written))
	for i := range existing {
		pool = append(pool, &existing[i])
	}
	return append(pool, written...)
}

func (s *CommitService) commitReceivables(ctx context.Context, scope shared.TeamScope, items []candidate[*finance.Receivable], links *fuzzy.Index[*finance.Contract], result *extraction.CommitResult) {
	if len(items) == 0 {
		return
	}
	from, to := dateBounds(items, func(r *finance.Receivable) time.Time { return r.ExpectedDate })
	existing, err := loadAll(func(page int) ([]finance.Receivable, error) {
		return s.receivables.FindMany(ctx, scope, finance.ReceivableFilter{
			Expected:   finance.DateRange{From: &from, To: &to},
			Pagination: shared.Pagination{Page: page, PageSize: loadPageSize},
		})
	})
	if err != nil {
		s.logger.Error("Failed to load existing receivables", zap.Error(err))
		result.Fail("failed to load existing receivables: %v", err)
		return
	}

	known := dayIndex[*finance.Receivable]{}
	for i := range existing {
		known.add(receivableDay(&existing[i]), &existing[i])
	}

	var fresh []candidate[*finance.Receivable]
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := receivableBatchKey(item)
		if seen[key] || known.find(receivableDay(item.record), func(r *finance.Receivable) bool { return s.cfg.Dedup.SameReceivable(item.record, r) }) {
			result.DuplicatesSkipped++
			continue
		}
		seen[key] = true
		if c, ok := s.bestContract(links, item.reference); ok {
			item.record.LinkContract(c.ID)
		}
		fresh = append(fresh, item)
	}

	written := writeWithFallback(ctx, s.logger, extraction.EntityReceivable, fresh,
		func(ctx context.Context, batch []*finance.Receivable) error {
			return s.receivables.CreateBatch(ctx, scope, batch)
		},
		func(ctx context.Context, r *finance.Receivable) error {
			return s.receivables.Create(ctx, scope, r)
		},
		result,
	)
	s.record(ctx, extraction.EntityReceivable, len(written), result)
}

func (s *CommitService) commitExpenses(ctx context.Context, scope shared.TeamScope, items []candidate[*finance.Expense], links *fuzzy.Index[*finance.Contract], result *extraction.CommitResult) {
	if len(items) == 0 {
		return
	}
	from, to := dateBounds(items, func(e *finance.Expense) time.Time { return e.DueDate })
	existing, err := loadAll(func(page int) ([]finance.Expense, error) {
		return s.expenses.FindMany(ctx, scope, finance.ExpenseFilter{
			Due:        finance.DateRange{From: &from, To: &to},
			Pagination: shared.Pagination{Page: page, PageSize: loadPageSize},
		})
	})
	if err != nil {
		s.logger.Error("Failed to load existing expenses", zap.Error(err))
		result.Fail("failed to load existing expenses: %v", err)
		return
	}

	known := dayIndex[*finance.Expense]{}
	for i := range existing {
		known.add(expenseDay(&existing[i]), &existing[i])
	}

	var fresh []candidate[*finance.Expense]
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := expenseBatchKey(item)
		if seen[key] || known.find(expenseDay(item.record), func(e *finance.Expense) bool { return s.cfg.Dedup.SameExpense(item.record, e) }) {
			result.DuplicatesSkipped++
			continue
		}
		seen[key] = true
		if c, ok := s.bestContract(links, item.reference); ok {
			item.record.LinkContract(c.ID)
		}
		fresh = append(fresh, item)
	}

	written := writeWithFallback(ctx, s.logger, extraction.EntityExpense, fresh,
		func(ctx context.Context, batch []*finance.Expense) error {
			return s.expenses.CreateBatch(ctx, scope, batch)
		},
		func(ctx context.Context, e *finance.Expense) error {
			return s.expenses.Create(ctx, scope, e)
		},
		result,
	)
	s.record(ctx, extraction.EntityExpense, len(written), result)
}

func (s *CommitService) bestContract(links *fuzzy.Index[*finance.Contract], reference string) (*finance.Contract, bool) {
	if reference == "" || links.Len() == 0 {
		return nil, false
	}
	res, ok := links.Best(reference, s.cfg.LinkThreshold)
	if !ok {
		return nil, false
	}
	return res.Item, true
}

func (s *CommitService) record(ctx context.Context, t extraction.EntityType, n int, result *extraction.CommitResult) {
	result.AddCreated(t, n)
	s.metrics.RecordEntitiesCreated(ctx, string(t), n)
}

// writeWithFallback inserts items in one batch. When the batch fails each
// row is retried alone and the failing rows are reported. It returns the
// records that were written.
func writeWithFallback[T any](
	ctx context.Context,
	logger *zap.Logger,
	entityType extraction.EntityType,
	items []candidate[T],
	batch func(context.Context, []T) error,
	single func(context.Context, T) error,
	result *extraction.CommitResult,
) []T {
	if len(items) == 0 {
		return nil
	}
	records := make([]T, len(items))
	for i, item := range items {
		records[i] = item.record
	}

	batchErr := batch(ctx, records)
	if batchErr == nil {
		return records
	}
	logger.Warn("Batch insert failed, retrying rows individually",
		zap.String("entity_type", string(entityType)),
		zap.Int("rows", len(items)),
		zap.Error(batchErr),
	)

	var (
		written  []T
		fatalErr error
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			fatalErr = err
			break
		}
		if err := single(ctx, item.record); err != nil {
			result.AddError("%s: %v", item.label, err)
			if !isRowError(err) && fatalErr == nil {
				fatalErr = err
			}
			continue
		}
		written = append(written, item.record)
	}

	if len(written) == 0 && fatalErr != nil {
		result.Fail("failed to save %ss: %v", entityType, fatalErr)
	}
	return written
}

// isRowError reports whether a write failed because of the row's own data.
func isRowError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) || errors.Is(err, shared.ErrAlreadyExists)
}

// loadAll pages through fetch until a short page is returned.
func loadAll[T any](fetch func(page int) ([]T, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		items, err := fetch(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, items...)
		if len(items) < loadPageSize {
			return all, nil
		}
	}
}

func containsMatch[T any](items []T, match func(T) bool) bool {
	for _, item := range items {
		if match(item) {
			return true
		}
	}
	return false
}

// dateBounds returns the earliest and latest date among items.
func dateBounds[T any](items []candidate[T], date func(T) time.Time) (time.Time, time.Time) {
	from := date(items[0].record)
	to := from
	for _, item := range items[1:] {
		d := date(item.record)
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	return from, to
}
