package sheetimport

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Format is a spreadsheet container format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatUnknown Format = ""
)

// FormatOf returns the spreadsheet format implied by the file extension.
func FormatOf(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatUnknown
}

// IsSpreadsheet reports whether the processor can read the file.
func IsSpreadsheet(filename string) bool {
	return FormatOf(filename) != FormatUnknown
}

// Sheet is a named grid of raw cells.
type Sheet struct {
	Name string
	Rows [][]extraction.RawCell
}

// Workbook is the result of reading a spreadsheet file. SheetErrors holds
// sheets that could not be read; the others are still usable.
type Workbook struct {
	Sheets      []Sheet
	SheetErrors []error
}

// ReadWorkbook reads spreadsheet bytes into sheets of raw cells.
func ReadWorkbook(data []byte, filename string, csvReader *CSVReader) (wb Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable workbook: %v", r)
		}
	}()

	if len(data) == 0 {
		return Workbook{}, ErrEmptyFile
	}

	switch FormatOf(filename) {
	case FormatCSV:
		return readCSV(data, filename, csvReader)
	case FormatXLSX:
		return readXLSX(data)
	case FormatXLS:
		return readXLS(data)
	}
	return Workbook{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

func readCSV(data []byte, filename string, reader *CSVReader) (Workbook, error) {
	if reader == nil {
		reader = NewCSVReader()
	}
	records, err := reader.ReadAll(data)
	if err != nil {
		return Workbook{}, err
	}
	rows := make([][]extraction.RawCell, len(records))
	for i, record := range records {
		cells := make([]extraction.RawCell, len(record))
		for j, v := range record {
			cells[j] = extraction.TextCell(v)
		}
		rows[i] = cells
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return Workbook{Sheets: []Sheet{{Name: name, Rows: rows}}}, nil
}

func readXLSX(data []byte) (Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Workbook{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var wb Workbook
	for _, name := range f.GetSheetList() {
		formatted, err := f.GetRows(name)
		if err != nil {
			wb.SheetErrors = append(wb.SheetErrors, NewSheetError(name, ErrCodeMalformedSheet, err))
			continue
		}
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			wb.SheetErrors = append(wb.SheetErrors, NewSheetError(name, ErrCodeMalformedSheet, err))
			continue
		}
		isText := func(row, col int) bool {
			axis, err := excelize.CoordinatesToCellName(col+1, row+1)
			if err != nil {
				return false
			}
			typ, err := f.GetCellType(name, axis)
			return err == nil && (typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: mergeTypedRows(formatted, raw, isText)})
	}
	return wb, nil
}

// mergeTypedRows pairs display text with raw values. isText is consulted
// only when a decimal-looking value is shown unformatted, the one case where
// a stored number and a text cell look identical.
func mergeTypedRows(formatted, raw [][]string, isText func(row, col int) bool) [][]extraction.RawCell {
	rows := make([][]extraction.RawCell, len(formatted))
	for i, row := range formatted {
		cells := make([]extraction.RawCell, len(row))
		for j, text := range row {
			rawValue := text
			if i < len(raw) && j < len(raw[i]) {
				rawValue = raw[i][j]
			}
			if rawValue == text && strings.ContainsAny(text, ".,") && isText(i, j) {
				cells[j] = extraction.TextCell(text)
				continue
			}
			cells[j] = typedCell(text, rawValue)
		}
		rows[i] = cells
	}
	return rows
}

var dateLike = regexp.MustCompile(`^\d{1,4}[/\-.][0-9A-Za-z]{1,3}[/\-.]\d{2,4}`)

// typedCell recovers numbers and dates from an xlsx cell's display text
// and raw stored value.
func typedCell(text, raw string) extraction.RawCell {
	cell := extraction.TextCell(text)
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return cell
	}
	if text != raw && looksLikeDate(text, n) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil && t.Year() > 1900 && t.Year() < 2200 {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			cell.Time = &day
			return cell
		}
	}
	cell.Number = &n
	return cell
}

func looksLikeDate(text string, value float64) bool {
	if !dateLike.MatchString(strings.TrimSpace(text)) {
		return false
	}
	if parsed := locale.ParseCurrency(text); parsed != nil && math.Abs(*parsed-value) < 1e-9 {
		return false
	}
	return true
}

var plainNumber = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func readXLS(data []byte) (Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Workbook{}, fmt.Errorf("failed to open xls: %w", err)
	}

	var wb Workbook
	for i, sheet := range book.GetSheets() {
		name := sheet.GetName()
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		var rows [][]extraction.RawCell
		for _, row := range sheet.GetRows() {
			var cells []extraction.RawCell
			for _, col := range row.GetCols() {
				cells = append(cells, xlsCell(col.GetString()))
			}
			rows = append(rows, cells)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}
	return wb, nil
}

// xlsCell treats plain Go-style float literals as stored numbers; legacy
// workbooks render numeric cells that way.
func xlsCell(text string) extraction.RawCell {
	cell := extraction.TextCell(text)
	trimmed := strings.TrimSpace(text)
	if plainNumber.MatchString(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			cell.Number = &n
		}
	}
	return cell
}
