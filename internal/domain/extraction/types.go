// Package extraction holds the transient values that flow through the
// import pipeline: raw cells, parsed rows, sections and extracted entities.
// None of them outlive a single file-processing call.
package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityType is the kind of financial record an entity becomes.
type EntityType string

const (
	EntityContract   EntityType = "contract"
	EntityReceivable EntityType = "receivable"
	EntityExpense    EntityType = "expense"
)

// EntityTypes lists the entity types in commit order.
var EntityTypes = []EntityType{EntityContract, EntityReceivable, EntityExpense}

// IsValid checks if the type is one of the committable entity types
func (t EntityType) IsValid() bool {
	switch t {
	case EntityContract, EntityReceivable, EntityExpense:
		return true
	}
	return false
}

// RowType is the classification of a spreadsheet row.
type RowType string

const (
	RowContract   RowType = RowType(EntityContract)
	RowReceivable RowType = RowType(EntityReceivable)
	RowExpense    RowType = RowType(EntityExpense)
	RowUnknown    RowType = "unknown"
)

// EntityType converts a known row type. Unknown rows return ok=false.
func (t RowType) EntityType() (EntityType, bool) {
	et := EntityType(t)
	return et, et.IsValid()
}

// RawCell is one spreadsheet cell before parsing. Typed workbook values
// populate Number or Time alongside the display text.
type RawCell struct {
	Text   string
	Number *float64
	Time   *time.Time
}

// TextCell builds a cell holding only text.
func TextCell(s string) RawCell {
	return RawCell{Text: s}
}

// IsEmpty reports whether the cell carries no value
func (c RawCell) IsEmpty() bool {
	return c.Number == nil && c.Time == nil && strings.TrimSpace(c.Text) == ""
}

// String returns the display form of the cell
func (c RawCell) String() string {
	switch {
	case strings.TrimSpace(c.Text) != "":
		return c.Text
	case c.Time != nil:
		return c.Time.Format(DateLayout)
	case c.Number != nil:
		return strconv.FormatFloat(*c.Number, 'f', -1, 64)
	}
	return ""
}

// DateLayout is the ISO layout used for every date in the pipeline.
const DateLayout = "2006-01-02"

// SourceRef points back to where an entity came from.
type SourceRef struct {
	File  string `json:"file,omitempty"`
	Sheet string `json:"sheet,omitempty"`
	Row   int    `json:"row,omitempty"`
}

// String renders the reference for error messages
func (s SourceRef) String() string {
	var parts []string
	if s.File != "" {
		parts = append(parts, s.File)
	}
	if s.Sheet != "" {
		parts = append(parts, "sheet "+s.Sheet)
	}
	if s.Row > 0 {
		parts = append(parts, fmt.Sprintf("row %d", s.Row))
	}
	return strings.Join(parts, ", ")
}

// EntityData is the union of the contract, receivable and expense field sets.
// Amounts are plain numbers; dates are ISO strings.
type EntityData struct {
	ClientName     string   `json:"clientName,omitempty"`
	ProjectName    string   `json:"projectName,omitempty"`
	Description    string   `json:"description,omitempty"`
	Vendor         string   `json:"vendor,omitempty"`
	Category       string   `json:"category,omitempty"`
	Status         string   `json:"status,omitempty"`
	InvoiceNumber  string   `json:"invoiceNumber,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	TotalValue     *float64 `json:"totalValue,omitempty"`
	Amount         *float64 `json:"amount,omitempty"`
	ReceivedAmount *float64 `json:"receivedAmount,omitempty"`
	SignedDate     string   `json:"signedDate,omitempty"`
	ExpectedDate   string   `json:"expectedDate,omitempty"`
	DueDate        string   `json:"dueDate,omitempty"`
	ReceivedDate   string   `json:"receivedDate,omitempty"`
	PaidDate       string   `json:"paidDate,omitempty"`
}

// ExtractedEntity is a candidate record proposed by the heuristic or AI path.
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
	Source     SourceRef  `json:"source"`
	Data       EntityData `json:"data"`
}

// Label names the entity in error messages.
func (e ExtractedEntity) Label() string {
	if ref := e.Source.String(); ref != "" {
		return fmt.Sprintf("%s (%s)", e.Type, ref)
	}
	return string(e.Type)
}

// CommitResult is the per-file outcome of committing extracted entities.
type CommitResult struct {
	Success            bool     `json:"success"`
	ContractsCreated   int      `json:"contractsCreated"`
	ReceivablesCreated int      `json:"receivablesCreated"`
	ExpensesCreated    int      `json:"expensesCreated"`
	DuplicatesSkipped  int      `json:"duplicatesSkipped"`
	Errors             []string `json:"errors"`
}

// NewCommitResult returns an empty successful result
func NewCommitResult() CommitResult {
	return CommitResult{Success: true, Errors: []string{}}
}

// AddCreated increments the counter for the entity type
func (r *CommitResult) AddCreated(t EntityType, n int) {
	switch t {
	case EntityContract:
		r.ContractsCreated += n
	case EntityReceivable:
		r.ReceivablesCreated += n
	case EntityExpense:
		r.ExpensesCreated += n
	}
}

// Created returns the counter for the entity type
func (r CommitResult) Created(t EntityType) int {
	switch t {
	case EntityContract:
		return r.ContractsCreated
	case EntityReceivable:
		return r.ReceivablesCreated
	case EntityExpense:
		return r.ExpensesCreated
	}
	return 0
}

// TotalCreated sums the created counters
func (r CommitResult) TotalCreated() int {
	return r.ContractsCreated + r.ReceivablesCreated + r.ExpensesCreated
}

// AddError appends a non-fatal error string
func (r *CommitResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Fail records a systematic failure and flips Success
func (r *CommitResult) Fail(format string, args ...any) {
	r.Success = false
	r.AddError(format, args...)
}

// Merge folds another result into r
func (r *CommitResult) Merge(other CommitResult) {
	r.Success = r.Success && other.Success
	r.ContractsCreated += other.ContractsCreated
	r.ReceivablesCreated += other.ReceivablesCreated
	r.ExpensesCreated += other.ExpensesCreated
	r.DuplicatesSkipped += other.DuplicatesSkipped
	r.Errors = append(r.Errors, other.Errors...)
}
