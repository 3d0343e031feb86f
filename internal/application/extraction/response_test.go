package extractionapp

import (
	"testing"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	sheetimport "github.com/arqcashflow/backend/internal/infrastructure/import"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around", `Sure! {"a":{"b":2}} Hope it helps.`, `{"a":{"b":2}}`, false},
		{"no object", "I could not find anything", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, errNoJSONObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEntity(t *testing.T) {
	in := map[string]any{
		"type":       "Contrato",
		"confidence": "0.75",
		"row":        float64(4),
		"extra":      "dropped",
		"data": map[string]any{
			"clientName": "  Maria   Souza ",
			"totalValue": "R$ 3,500",
			"signedDate": "10/fev/24",
			"dueDate":    "amanha",
			"unknown":    1,
		},
	}

	out := normalizeEntity(in)

	assert.Equal(t, "contract", out["type"])
	assert.Equal(t, 0.75, out["confidence"])
	assert.Equal(t, float64(4), out["row"])
	assert.NotContains(t, out, "extra")
	data := out["data"].(map[string]any)
	assert.Equal(t, "Maria Souza", data["clientName"])
	assert.Equal(t, 3500.0, data["totalValue"])
	assert.Equal(t, "2024-02-10", data["signedDate"])
	assert.NotContains(t, data, "dueDate")
	assert.NotContains(t, data, "unknown")
}

func TestParseEntities_SchemaRejectsPerEntity(t *testing.T) {
	content := `{"entities": [
		{"type": "invoice", "confidence": 0.9, "data": {}},
		{"type": "expense", "confidence": 1.5, "data": {}},
		{"type": "expense", "confidence": 0.9, "data": {"description": "Luz", "amount": "-10", "dueDate": "2024-05-01"}},
		{"type": "expense", "confidence": 0.9, "data": {"description": "Agua", "amount": 80, "dueDate": "2024-05-02"}}
	]}`

	entities, problems, err := parseEntities(content, entityScope{file: "f.pdf", label: "f.pdf", minConfidence: 0.5})

	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Agua", entities[0].Data.Description)
	assert.Len(t, problems, 3)
}

func TestParseAnalysis(t *testing.T) {
	a, err := parseAnalysis(`{"containsFinancialData": true, "entityTypes": ["receivable", "expense"]}`)
	require.NoError(t, err)
	assert.True(t, a.ContainsFinancialData)
	assert.Equal(t, []extraction.EntityType{extraction.EntityReceivable, extraction.EntityExpense}, a.EntityTypes)

	_, err = parseAnalysis(`{"entityTypes": "expense"}`)
	assert.Error(t, err)
}

func TestSplitSheet(t *testing.T) {
	sheet := sheetimport.ProcessedSheet{Name: "S", Headers: []string{"a", "b", "c"}}
	for i := 0; i < 5; i++ {
		sheet.Rows = append(sheet.Rows, extraction.ProcessedRow{RowNumber: 10 + i})
	}

	chunks := splitSheet(sheet, 2)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.index)
		assert.Equal(t, sheet.Headers, c.headers)
	}
	assert.Equal(t, 10, chunks[0].firstRow())
	assert.Equal(t, 11, chunks[0].lastRow())
	assert.Equal(t, 14, chunks[2].firstRow())
	assert.Equal(t, map[int]bool{12: true, 13: true}, chunks[1].rowSet())
}

func TestEntitySchema_DatePattern(t *testing.T) {
	tests := []struct {
		name    string
		dueDate string
		wantErr bool
	}{
		{"iso", "2024-05-01", false},
		{"brazilian", "01/05/2024", true},
		{"single digit month", "2024-5-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"type": "expense", "confidence": 0.9, "data": {"description": "Luz", "amount": 10, "dueDate": "` + tt.dueDate + `"}}`)
			_, err := decodeValidated(raw, entityValidator)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
