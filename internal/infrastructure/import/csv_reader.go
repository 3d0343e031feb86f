package sheetimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters in preference order. Semicolon first: spreadsheet
// exports in pt-BR use it because the comma is the decimal mark.
var candidateDelimiters = []rune{';', ',', '\t'}

// CSVReader reads delimited text into rows of fields.
type CSVReader struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
}

// CSVOption is a functional option for CSVReader configuration
type CSVOption func(*CSVReader)

// WithDelimiter fixes the field delimiter and disables sniffing
func WithDelimiter(d rune) CSVOption {
	return func(r *CSVReader) {
		r.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) CSVOption {
	return func(r *CSVReader) {
		r.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading spaces from fields
func WithTrimSpace(trim bool) CSVOption {
	return func(r *CSVReader) {
		r.trimSpace = trim
	}
}

// NewCSVReader creates a CSV reader. Without WithDelimiter the delimiter is
// sniffed from the first non-empty line.
func NewCSVReader(opts ...CSVOption) *CSVReader {
	r := &CSVReader{
		lazyQuotes: true,
		trimSpace:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadAll decodes data and returns every record. A UTF-8 BOM is dropped and
// input that is not valid UTF-8 is decoded as Windows-1252.
func (r *CSVReader) ReadAll(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode file: %w", err)
		}
		data = decoded
	}

	delimiter := r.delimiter
	if delimiter == 0 {
		delimiter = SniffDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = r.lazyQuotes
	reader.TrimLeadingSpace = r.trimSpace
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return records, fmt.Errorf("malformed CSV at line %d: %w", parseErr.Line, parseErr.Err)
			}
			return records, fmt.Errorf("failed to read CSV: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// SniffDelimiter picks the candidate delimiter that appears most often,
// outside quotes, in the first non-empty line. Defaults to comma.
func SniffDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
