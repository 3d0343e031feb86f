package sheetimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeUnsupportedFormat = "ERR_IMPORT_UNSUPPORTED_FORMAT"
	ErrCodeEmptyFile         = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeInvalidWorkbook   = "ERR_IMPORT_INVALID_WORKBOOK"
	ErrCodeCSVParsing        = "ERR_IMPORT_CSV_PARSING"
	ErrCodeMissingHeader     = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeMalformedSheet    = "ERR_IMPORT_MALFORMED_SHEET"
	ErrCodeInvalidCurrency   = "ERR_IMPORT_INVALID_CURRENCY"
	ErrCodeInvalidDate       = "ERR_IMPORT_INVALID_DATE"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the file has no content
	ErrEmptyFile = errors.New("file is empty")

	// ErrMissingHeader is returned when no row qualifies as a header
	ErrMissingHeader = errors.New("no header row found (expected a row with at least 3 filled cells)")

	// ErrUnsupportedFormat is returned for extensions the processor cannot read
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// SheetError is a problem that made a whole sheet unusable.
type SheetError struct {
	Sheet   string `json:"sheet"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *SheetError) Error() string {
	if e.Sheet == "" {
		return e.Message
	}
	return fmt.Sprintf("sheet '%s': %s", e.Sheet, e.Message)
}

// Unwrap returns the underlying cause
func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError wraps err as a sheet-level error
func NewSheetError(sheet, code string, err error) *SheetError {
	return &SheetError{Sheet: sheet, Code: code, Message: err.Error(), Err: err}
}

// RowError describes a cell that was mapped but could not be parsed.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message, value string) *RowError {
	return &RowError{Row: row, Column: column, Code: code, Message: message, Value: value}
}

// ErrorCollection keeps the first maxErrors errors and counts the rest.
type ErrorCollection struct {
	errors     []error
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]error, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err error) {
	if err == nil {
		return
	}
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []error {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// Strings renders the collected errors, with a trailing note when truncated.
func (ec *ErrorCollection) Strings() []string {
	out := make([]string, 0, len(ec.errors)+1)
	for _, err := range ec.errors {
		out = append(out, err.Error())
	}
	if ec.IsTruncated() {
		out = append(out, fmt.Sprintf("%d more error(s) omitted", ec.totalCount-ec.maxErrors))
	}
	return out
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	return strings.Join(ec.Strings(), "; ")
}
