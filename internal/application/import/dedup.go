package importapp

import (
	"strings"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/finance"
	"github.com/arqcashflow/backend/internal/infrastructure/fuzzy"
	"github.com/shopspring/decimal"
)

// DedupPolicy decides when an incoming record repeats one already known.
type DedupPolicy struct {
	// Threshold is the minimum fuzzy score between the descriptive texts.
	Threshold float64
	// ValueTolerance is the relative difference allowed between contract values.
	ValueTolerance float64
}

// DefaultDedupPolicy returns the thresholds used when none are configured
func DefaultDedupPolicy() DedupPolicy {
	return DedupPolicy{Threshold: 0.85, ValueTolerance: 0.01}
}

// SameContract compares client+project text and total value.
func (p DedupPolicy) SameContract(a, b *finance.Contract) bool {
	if !withinTolerance(a.TotalValue, b.TotalValue, p.ValueTolerance) {
		return false
	}
	return fuzzy.Match(a.DisplayName(), b.DisplayName()) >= p.Threshold
}

// SameReceivable requires the same expected day and amount, then compares
// the client names, or the descriptions when a client is missing.
func (p DedupPolicy) SameReceivable(a, b *finance.Receivable) bool {
	if !sameDay(a.ExpectedDate, b.ExpectedDate) || !a.Amount.Equal(b.Amount) {
		return false
	}
	return textScore(
		[2]string{a.ClientName, b.ClientName},
		[2]string{a.Description, b.Description},
	) >= p.Threshold
}

// SameExpense requires the same due day and amount, then compares the
// descriptions and vendors.
func (p DedupPolicy) SameExpense(a, b *finance.Expense) bool {
	if !sameDay(a.DueDate, b.DueDate) || !a.Amount.Equal(b.Amount) {
		return false
	}
	return textScore(
		[2]string{a.Description, b.Description},
		[2]string{a.Vendor, b.Vendor},
	) >= p.Threshold
}

// textScore returns the best score over the pairs where both sides carry
// text. With nothing to compare the records cannot be told apart, so the
// score is 1.
func textScore(pairs ...[2]string) float64 {
	best, compared := 0.0, false
	for _, pair := range pairs {
		if fuzzy.Normalize(pair[0]) == "" || fuzzy.Normalize(pair[1]) == "" {
			continue
		}
		compared = true
		best = max(best, fuzzy.Match(pair[0], pair[1]))
	}
	if !compared {
		return 1
	}
	return best
}

func withinTolerance(a, b decimal.Decimal, tolerance float64) bool {
	diff := a.Sub(b).Abs()
	limit := decimal.Max(a.Abs(), b.Abs()).Mul(decimal.NewFromFloat(tolerance))
	return diff.LessThanOrEqual(limit)
}

// batchKey identifies a record within one file. Records of the same file are
// duplicates only when every normalised part is equal.
func batchKey(parts ...string) string {
	for i, part := range parts {
		parts[i] = fuzzy.Normalize(part)
	}
	return strings.Join(parts, "\x00")
}

func contractBatchKey(c *finance.Contract) string {
	return batchKey(c.ClientName, c.ProjectName, c.TotalValue.String())
}

func receivableBatchKey(item candidate[*finance.Receivable]) string {
	r := item.record
	return batchKey(receivableDay(r), r.Amount.String(), item.reference, r.Description)
}

func expenseBatchKey(item candidate[*finance.Expense]) string {
	e := item.record
	return batchKey(expenseDay(e), e.Amount.String(), item.reference, e.Description, e.Vendor)
}

// dayIndex groups records by calendar day so dedup only compares records
// that can match.
type dayIndex[T any] map[string][]T

func (idx dayIndex[T]) add(day string, item T) {
	idx[day] = append(idx[day], item)
}

func (idx dayIndex[T]) find(day string, match func(T) bool) bool {
	for _, item := range idx[day] {
		if match(item) {
			return true
		}
	}
	return false
}

func receivableDay(r *finance.Receivable) string {
	return r.ExpectedDate.Format(extraction.DateLayout)
}

func expenseDay(e *finance.Expense) string {
	return e.DueDate.Format(extraction.DateLayout)
}
