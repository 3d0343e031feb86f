// Package sheetimport turns spreadsheet bytes (CSV, XLSX, XLS) into typed,
// classified rows: it finds the header row, maps headers to canonical
// fields, parses each cell with the locale parsers and detects row types.
package sheetimport

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"go.uber.org/zap"
)

// minHeaderCells is the number of filled cells that makes a row a header.
const minHeaderCells = 3

// ProcessedSheet is one sheet after header detection and row parsing.
type ProcessedSheet struct {
	Name      string                    `json:"name"`
	HeaderRow int                       `json:"headerRow"`
	Headers   []string                  `json:"headers"`
	Mapping   extraction.ColumnMapping  `json:"mapping"`
	Rows      []extraction.ProcessedRow `json:"rows"`
	Sections  []extraction.DataSection  `json:"sections"`
	Warnings  []string                  `json:"warnings,omitempty"`
}

// TypedRows returns rows whose type is not unknown
func (s ProcessedSheet) TypedRows() []extraction.ProcessedRow {
	var out []extraction.ProcessedRow
	for _, r := range s.Rows {
		if r.DetectedType != extraction.RowUnknown {
			out = append(out, r)
		}
	}
	return out
}

// CountByType counts rows per detected type
func (s ProcessedSheet) CountByType() map[extraction.RowType]int {
	counts := make(map[extraction.RowType]int)
	for _, r := range s.Rows {
		counts[r.DetectedType]++
	}
	return counts
}

// ProcessResult is the outcome of processing one file. Errors are
// descriptive strings; a failed sheet never hides the others.
type ProcessResult struct {
	Sheets []ProcessedSheet `json:"sheets"`
	Errors []string         `json:"errors"`
}

// Processor parses spreadsheet files.
type Processor struct {
	logger    *zap.Logger
	csv       *CSVReader
	maxErrors int
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithCSVReader overrides the CSV reader
func WithCSVReader(r *CSVReader) ProcessorOption {
	return func(p *Processor) {
		p.csv = r
	}
}

// WithMaxErrors caps the number of error strings reported per file
func WithMaxErrors(n int) ProcessorOption {
	return func(p *Processor) {
		p.maxErrors = n
	}
}

// NewProcessor creates a Processor
func NewProcessor(logger *zap.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		logger:    logger,
		csv:       NewCSVReader(),
		maxErrors: 100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile reads and classifies every sheet of a spreadsheet file.
// Unsupported or unreadable files produce one error and no sheets.
func (p *Processor) ProcessFile(data []byte, filename string) ProcessResult {
	result := ProcessResult{Sheets: []ProcessedSheet{}, Errors: []string{}}

	if !IsSpreadsheet(filename) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s: unsupported file type %q (expected .csv, .xlsx or .xls)", filename, filepath.Ext(filename)))
		return result
	}

	wb, err := ReadWorkbook(data, filename, p.csv)
	if err != nil {
		p.logger.Warn("Failed to read workbook",
			zap.String("file", filename),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", filename, err.Error()))
		return result
	}

	errs := NewErrorCollection(p.maxErrors)
	for _, sheetErr := range wb.SheetErrors {
		errs.Add(sheetErr)
	}
	for _, sheet := range wb.Sheets {
		processed, err := p.ProcessSheet(sheet)
		if err != nil {
			if !errors.Is(err, errEmptySheet) {
				errs.Add(err)
			}
			continue
		}
		result.Sheets = append(result.Sheets, processed)
	}

	for _, msg := range errs.Strings() {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", filename, msg))
	}

	p.logger.Debug("Processed spreadsheet",
		zap.String("file", filename),
		zap.Int("sheets", len(result.Sheets)),
		zap.Int("errors", errs.TotalCount()),
	)
	return result
}

var errEmptySheet = errors.New("sheet is empty")

// ProcessSheet locates the header, maps columns and parses each data row.
func (p *Processor) ProcessSheet(sheet Sheet) (ProcessedSheet, error) {
	headerIdx, nonEmpty := findHeaderRow(sheet.Rows)
	if nonEmpty == 0 {
		return ProcessedSheet{}, errEmptySheet
	}
	if headerIdx < 0 {
		return ProcessedSheet{}, NewSheetError(sheet.Name, ErrCodeMissingHeader, ErrMissingHeader)
	}

	headers := make([]string, len(sheet.Rows[headerIdx]))
	for i, cell := range sheet.Rows[headerIdx] {
		headers[i] = locale.CleanText(cell.String())
	}
	mapping := DetectColumns(headers)

	processed := ProcessedSheet{
		Name:      sheet.Name,
		HeaderRow: headerIdx + 1,
		Headers:   headers,
		Mapping:   mapping,
		Rows:      []extraction.ProcessedRow{},
	}
	warnings := NewErrorCollection(p.maxErrors)
	for i := headerIdx + 1; i < len(sheet.Rows); i++ {
		cells := sheet.Rows[i]
		if isBlankRow(cells) {
			continue
		}
		fields := ParseRow(cells, mapping)
		for _, rowErr := range unparsedCells(i+1, cells, headers, mapping, fields) {
			warnings.Add(rowErr)
		}
		processed.Rows = append(processed.Rows, extraction.NewProcessedRow(i+1, cells, fields))
	}
	processed.Sections = extraction.GroupSections(processed.Rows)
	if warnings.HasErrors() {
		processed.Warnings = warnings.Strings()
	}
	return processed, nil
}

// unparsedCells reports mapped currency and date cells that held a value
// the locale parsers rejected, once per cell.
func unparsedCells(rowNumber int, cells []extraction.RawCell, headers []string, mapping extraction.ColumnMapping, fields extraction.ParsedFields) []*RowError {
	var out []*RowError
	reported := make(map[int]bool)
	for _, field := range CanonicalFields {
		kind := field.Kind()
		if kind != extraction.KindCurrency && kind != extraction.KindDate {
			continue
		}
		col, ok := mapping.Column(field)
		if !ok || col >= len(cells) || cells[col].IsEmpty() || fields.Has(field) || reported[col] {
			continue
		}
		reported[col] = true
		column := ""
		if col < len(headers) {
			column = headers[col]
		}
		value := cells[col].String()
		if kind == extraction.KindCurrency {
			out = append(out, NewRowError(rowNumber, column, ErrCodeInvalidCurrency, "not a valid amount", value))
		} else {
			out = append(out, NewRowError(rowNumber, column, ErrCodeInvalidDate, "not a valid date", value))
		}
	}
	return out
}

// findHeaderRow returns the index of the first row with enough filled
// cells, or -1, plus the count of non-empty rows seen.
func findHeaderRow(rows [][]extraction.RawCell) (int, int) {
	nonEmpty := 0
	for i, row := range rows {
		filled := 0
		for _, cell := range row {
			if !cell.IsEmpty() {
				filled++
			}
		}
		if filled > 0 {
			nonEmpty++
		}
		if filled >= minHeaderCells {
			return i, nonEmpty
		}
	}
	return -1, nonEmpty
}

func isBlankRow(cells []extraction.RawCell) bool {
	for _, c := range cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// ParseRow parses the mapped cells of a row. Compound "code - client"
// labels in name columns fill both client and project; a value from the
// dedicated column always wins over a derived one.
func ParseRow(cells []extraction.RawCell, mapping extraction.ColumnMapping) extraction.ParsedFields {
	fields := extraction.NewParsedFields()
	derived := make(map[extraction.Field]string)

	for _, field := range CanonicalFields {
		col, ok := mapping.Column(field)
		if !ok || col >= len(cells) {
			continue
		}
		cell := cells[col]
		if cell.IsEmpty() {
			continue
		}

		switch field.Kind() {
		case extraction.KindCurrency:
			if v := parseAmount(cell); v != nil {
				fields.Amounts[field] = *v
			}
		case extraction.KindDate:
			if v := parseDateCell(cell); v != nil {
				fields.Dates[field] = *v
			}
		case extraction.KindName:
			text := cell.String()
			if !locale.HasProjectSeparator(text) {
				fields.SetText(field, locale.CleanText(text))
				continue
			}
			pc := locale.ParseProjectClient(text)
			if field == extraction.FieldClient {
				fields.SetText(extraction.FieldClient, pc.Client)
				derived[extraction.FieldProject] = pc.Project
			} else {
				fields.SetText(extraction.FieldProject, pc.Project)
				derived[extraction.FieldClient] = pc.Client
			}
		default:
			fields.SetText(field, locale.CleanText(cell.String()))
		}
	}

	for field, value := range derived {
		if _, set := fields.Text[field]; !set {
			fields.SetText(field, value)
		}
	}
	return fields
}

func parseAmount(cell extraction.RawCell) *float64 {
	if cell.Number != nil {
		v := *cell.Number
		return &v
	}
	return locale.ParseCurrency(cell.Text)
}

func parseDateCell(cell extraction.RawCell) *string {
	if cell.Time != nil {
		s := locale.FormatDate(*cell.Time)
		return &s
	}
	if cell.Number != nil {
		return locale.ParseDate(strconv.FormatFloat(*cell.Number, 'f', -1, 64))
	}
	return locale.ParseDate(cell.Text)
}
