package extractionapp

import (
	"fmt"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/extraction"
)

const systemPrompt = `You extract financial records from Brazilian architecture-firm documents.
Record kinds:
- contract: a signed project agreement (clientName, projectName, totalValue, signedDate).
- receivable: money expected from a client (clientName or projectName, amount, expectedDate).
- expense: money owed to a vendor (description or vendor, amount, dueDate).
Amounts are numbers in BRL; "R$ 1.234,56" is 1234.56. Dates are YYYY-MM-DD; "15/03/2024" is 2024-03-15.
Answer with a single JSON object and nothing else. Never invent values that are not in the input.
Give each record a confidence between 0 and 1.`

func formatRow(headers []string, row extraction.ProcessedRow) string {
	parts := make([]string, 0, len(row.Cells))
	for i, cell := range row.Cells {
		if cell.IsEmpty() {
			continue
		}
		name := fmt.Sprintf("col%d", i+1)
		if i < len(headers) && headers[i] != "" {
			name = headers[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, cell.String()))
	}
	return fmt.Sprintf("Row %d: %s", row.RowNumber, strings.Join(parts, " | "))
}

func hintLine(hint string) string {
	if hint = strings.TrimSpace(hint); hint == "" {
		return ""
	}
	return fmt.Sprintf("User hint: %s\n", hint)
}

func buildAnalysisPrompt(file string, c chunk, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File %q, sheet %q.\n", file, c.sheet)
	b.WriteString(hintLine(hint))
	fmt.Fprintf(&b, "Header: %s\n", strings.Join(c.headers, " | "))
	b.WriteString("Sample rows:\n")
	for _, row := range c.rows {
		b.WriteString(formatRow(c.headers, row))
		b.WriteByte('\n')
	}
	b.WriteString(`Does this sheet hold contracts, receivables or expenses? ` +
		`Reply as {"containsFinancialData": bool, "entityTypes": [...], "notes": "..."}.`)
	return b.String()
}

func buildChunkPrompt(file string, c chunk, types []extraction.EntityType, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File %q, sheet %q, rows %d to %d.\n", file, c.sheet, c.firstRow(), c.lastRow())
	b.WriteString(hintLine(hint))
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "Expected record kinds: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Header: %s\n", strings.Join(c.headers, " | "))
	for _, row := range c.rows {
		b.WriteString(formatRow(c.headers, row))
		b.WriteByte('\n')
	}
	b.WriteString(`Reply as {"entities": [{"type", "confidence", "row", "data": {...}}]}. ` +
		`"row" must be the number shown before the row the record came from.`)
	return b.String()
}

func buildDocumentPrompt(file, hint, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %q.\n", file)
	b.WriteString(hintLine(hint))
	if text != "" {
		b.WriteString("Content:\n")
		b.WriteString(text)
		b.WriteByte('\n')
	} else {
		b.WriteString("The document is attached.\n")
	}
	b.WriteString(`Reply as {"entities": [{"type", "confidence", "data": {...}}]}.`)
	return b.String()
}
