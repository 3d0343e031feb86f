package extractionapp

import (
	"github.com/arqcashflow/backend/internal/domain/extraction"
	sheetimport "github.com/arqcashflow/backend/internal/infrastructure/import"
)

// chunk is a slice of a sheet's data rows sent in one request. Rows keep
// their source row numbers.
type chunk struct {
	index   int
	sheet   string
	headers []string
	rows    []extraction.ProcessedRow
}

func (c chunk) firstRow() int { return c.rows[0].RowNumber }
func (c chunk) lastRow() int  { return c.rows[len(c.rows)-1].RowNumber }

// rowSet returns the row numbers an entity of this chunk may cite.
func (c chunk) rowSet() map[int]bool {
	set := make(map[int]bool, len(c.rows))
	for _, r := range c.rows {
		set[r.RowNumber] = true
	}
	return set
}

// splitSheet cuts the data rows of a sheet into chunks of at most size rows.
// Every chunk carries the header.
func splitSheet(sheet sheetimport.ProcessedSheet, size int) []chunk {
	if size <= 0 {
		size = DefaultConfig().ChunkRows
	}
	var chunks []chunk
	for start := 0; start < len(sheet.Rows); start += size {
		end := min(start+size, len(sheet.Rows))
		chunks = append(chunks, chunk{
			index:   len(chunks),
			sheet:   sheet.Name,
			headers: sheet.Headers,
			rows:    sheet.Rows[start:end],
		})
	}
	return chunks
}
