package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(text map[Field]string, amounts map[Field]float64, dates map[Field]string) ParsedFields {
	p := NewParsedFields()
	for k, v := range text {
		p.Text[k] = v
	}
	for k, v := range amounts {
		p.Amounts[k] = v
	}
	for k, v := range dates {
		p.Dates[k] = v
	}
	return p
}

func TestDetectRowType(t *testing.T) {
	tests := []struct {
		name     string
		fields   ParsedFields
		expected RowType
	}{
		{
			name: "contract with project value and signed date",
			fields: fields(map[Field]string{FieldProject: "Casa"},
				map[Field]float64{FieldTotalValue: 10}, map[Field]string{FieldSignedDate: "2024-01-01"}),
			expected: RowContract,
		},
		{
			name:     "receivable",
			fields:   fields(nil, map[Field]float64{FieldAmount: 10}, map[Field]string{FieldExpectedDate: "2024-01-01"}),
			expected: RowReceivable,
		},
		{
			name: "expense with vendor",
			fields: fields(map[Field]string{FieldVendor: "ACME"},
				map[Field]float64{FieldAmount: 10}, map[Field]string{FieldDueDate: "2024-01-01"}),
			expected: RowExpense,
		},
		{
			name:     "expense without description or vendor is unknown",
			fields:   fields(nil, map[Field]float64{FieldAmount: 10}, map[Field]string{FieldDueDate: "2024-01-01"}),
			expected: RowUnknown,
		},
		{
			name:     "fallback contract without date",
			fields:   fields(map[Field]string{FieldClient: "Ana"}, map[Field]float64{FieldTotalValue: 10}, nil),
			expected: RowContract,
		},
		{
			name: "receivable rule outranks expense rule",
			fields: fields(map[Field]string{FieldDescription: "x"}, map[Field]float64{FieldAmount: 10},
				map[Field]string{FieldExpectedDate: "2024-01-01", FieldDueDate: "2024-01-02"}),
			expected: RowReceivable,
		},
		{
			name:     "empty",
			fields:   NewParsedFields(),
			expected: RowUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectRowType(tc.fields)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, got, DetectRowType(tc.fields), "detection must be deterministic")
			assert.Contains(t, []RowType{RowContract, RowReceivable, RowExpense, RowUnknown}, got)
		})
	}
}

func TestIsFallbackContract(t *testing.T) {
	full := fields(map[Field]string{FieldProject: "Casa"},
		map[Field]float64{FieldTotalValue: 10}, map[Field]string{FieldSignedDate: "2024-01-01"})
	fallback := fields(map[Field]string{FieldClient: "Ana"}, map[Field]float64{FieldTotalValue: 10}, nil)

	assert.False(t, IsFallbackContract(full))
	assert.True(t, IsFallbackContract(fallback))
}

func rowsOf(types ...RowType) []ProcessedRow {
	rows := make([]ProcessedRow, len(types))
	for i, typ := range types {
		rows[i] = ProcessedRow{RowNumber: i + 2, DetectedType: typ}
	}
	return rows
}

func TestGroupSections(t *testing.T) {
	t.Run("single contract among unknown rows", func(t *testing.T) {
		sections := GroupSections(rowsOf(RowUnknown, RowContract, RowUnknown, RowUnknown))
		require.Len(t, sections, 1)
		assert.Equal(t, RowContract, sections[0].Type)
		assert.Equal(t, 1, sections[0].RowCount)
		assert.Equal(t, 1.0, sections[0].Confidence)
		assert.Equal(t, 3, sections[0].StartRow)
	})

	t.Run("unknown gap inside a section lowers confidence", func(t *testing.T) {
		sections := GroupSections(rowsOf(RowExpense, RowUnknown, RowExpense, RowExpense))
		require.Len(t, sections, 1)
		assert.Equal(t, 4, sections[0].RowCount)
		assert.Equal(t, 3, sections[0].MatchingRows)
		assert.InDelta(t, 0.75, sections[0].Confidence, 1e-9)
	})

	t.Run("type change starts a new section", func(t *testing.T) {
		sections := GroupSections(rowsOf(RowContract, RowContract, RowUnknown, RowReceivable, RowExpense))
		require.Len(t, sections, 3)
		assert.Equal(t, RowContract, sections[0].Type)
		assert.Equal(t, 2, sections[0].RowCount)
		assert.Equal(t, RowReceivable, sections[1].Type)
		assert.Equal(t, RowExpense, sections[2].Type)
	})

	t.Run("no typed rows", func(t *testing.T) {
		assert.Empty(t, GroupSections(rowsOf(RowUnknown, RowUnknown)))
	})
}

func TestCommitResult(t *testing.T) {
	r := NewCommitResult()
	r.AddCreated(EntityContract, 2)
	r.AddCreated(EntityExpense, 1)
	r.AddError("row %d: bad", 3)

	other := NewCommitResult()
	other.AddCreated(EntityReceivable, 4)
	other.Fail("database unavailable")

	r.Merge(other)
	assert.False(t, r.Success)
	assert.Equal(t, 7, r.TotalCreated())
	assert.Equal(t, 4, r.Created(EntityReceivable))
	assert.Equal(t, []string{"row 3: bad", "database unavailable"}, r.Errors)
}

func TestSourceRef_String(t *testing.T) {
	assert.Equal(t, "a.csv, sheet S1, row 4", SourceRef{File: "a.csv", Sheet: "S1", Row: 4}.String())
	assert.Equal(t, "", SourceRef{}.String())
	e := ExtractedEntity{Type: EntityExpense, Source: SourceRef{Row: 9}}
	assert.Equal(t, "expense (row 9)", e.Label())
}
