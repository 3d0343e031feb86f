package extraction

// Field is a canonical column name.
type Field string

const (
	FieldClient         Field = "client"
	FieldProject        Field = "project"
	FieldTotalValue     Field = "totalValue"
	FieldSignedDate     Field = "signedDate"
	FieldExpectedDate   Field = "expectedDate"
	FieldAmount         Field = "amount"
	FieldDueDate        Field = "dueDate"
	FieldDescription    Field = "description"
	FieldVendor         Field = "vendor"
	FieldStatus         Field = "status"
	FieldCategory       Field = "category"
	FieldNotes          Field = "notes"
	FieldInvoiceNumber  Field = "invoiceNumber"
	FieldReceivedDate   Field = "receivedDate"
	FieldReceivedAmount Field = "receivedAmount"
	FieldPaidDate       Field = "paidDate"
)

// FieldKind selects the parser applied to a field's cells.
type FieldKind int

const (
	KindText FieldKind = iota
	KindCurrency
	KindDate
	KindName
)

// Kind returns the parser kind of the field
func (f Field) Kind() FieldKind {
	switch f {
	case FieldTotalValue, FieldAmount, FieldReceivedAmount:
		return KindCurrency
	case FieldSignedDate, FieldExpectedDate, FieldDueDate, FieldReceivedDate, FieldPaidDate:
		return KindDate
	case FieldClient, FieldProject:
		return KindName
	}
	return KindText
}

// ColumnMapping maps canonical fields to source column indexes.
// Built once per sheet; treat as read-only afterwards.
type ColumnMapping struct {
	Columns map[Field]int `json:"columns"`
	Scores  map[Field]int `json:"scores"`
}

// Column returns the mapped index for a field
func (m ColumnMapping) Column(f Field) (int, bool) {
	idx, ok := m.Columns[f]
	return idx, ok
}

// Len returns the number of mapped fields
func (m ColumnMapping) Len() int {
	return len(m.Columns)
}

// ParsedFields holds successfully parsed values of one row.
// Absent keys mean the field was unmapped, empty or unparseable.
type ParsedFields struct {
	Text    map[Field]string  `json:"text,omitempty"`
	Amounts map[Field]float64 `json:"amounts,omitempty"`
	Dates   map[Field]string  `json:"dates,omitempty"`
}

// NewParsedFields returns an empty field set
func NewParsedFields() ParsedFields {
	return ParsedFields{
		Text:    map[Field]string{},
		Amounts: map[Field]float64{},
		Dates:   map[Field]string{},
	}
}

// Has reports whether the field holds a value
func (p ParsedFields) Has(f Field) bool {
	if _, ok := p.Text[f]; ok {
		return true
	}
	if _, ok := p.Amounts[f]; ok {
		return true
	}
	_, ok := p.Dates[f]
	return ok
}

// SetText stores a non-empty text value
func (p ParsedFields) SetText(f Field, v string) {
	if v != "" {
		p.Text[f] = v
	}
}

// DetectRowType classifies a row from the fields it carries.
// Rules are evaluated in priority order and the first match wins.
func DetectRowType(p ParsedFields) RowType {
	switch {
	case p.Has(FieldProject) && p.Has(FieldTotalValue) && p.Has(FieldSignedDate):
		return RowContract
	case p.Has(FieldExpectedDate) && p.Has(FieldAmount):
		return RowReceivable
	case p.Has(FieldDueDate) && p.Has(FieldAmount) && (p.Has(FieldDescription) || p.Has(FieldVendor)):
		return RowExpense
	case (p.Has(FieldClient) || p.Has(FieldProject)) && p.Has(FieldTotalValue):
		return RowContract
	}
	return RowUnknown
}

// IsFallbackContract reports whether a contract row only matched the
// dateless fallback rule.
func IsFallbackContract(p ParsedFields) bool {
	return DetectRowType(p) == RowContract && !(p.Has(FieldProject) && p.Has(FieldSignedDate))
}

// ProcessedRow is one parsed source row.
type ProcessedRow struct {
	RowNumber    int          `json:"rowNumber"`
	Cells        []RawCell    `json:"-"`
	Fields       ParsedFields `json:"fields"`
	DetectedType RowType      `json:"detectedType"`
}

// NewProcessedRow builds a row and derives its type from the fields.
func NewProcessedRow(rowNumber int, cells []RawCell, fields ParsedFields) ProcessedRow {
	return ProcessedRow{
		RowNumber:    rowNumber,
		Cells:        cells,
		Fields:       fields,
		DetectedType: DetectRowType(fields),
	}
}

// DataSection is a run of rows sharing a detected type.
type DataSection struct {
	Type         RowType `json:"type"`
	StartRow     int     `json:"startRow"`
	EndRow       int     `json:"endRow"`
	RowCount     int     `json:"rowCount"`
	MatchingRows int     `json:"matchingRows"`
	Confidence   float64 `json:"confidence"`
}

// GroupSections groups rows into sections of the same known type.
// Unknown rows between two rows of one type stay inside that section and
// lower its confidence; leading and trailing unknown rows are excluded.
func GroupSections(rows []ProcessedRow) []DataSection {
	var sections []DataSection
	var current *DataSection
	pendingUnknown := 0

	closeCurrent := func() {
		if current == nil {
			return
		}
		current.Confidence = float64(current.MatchingRows) / float64(current.RowCount)
		sections = append(sections, *current)
		current = nil
	}

	for _, row := range rows {
		if row.DetectedType == RowUnknown {
			if current != nil {
				pendingUnknown++
			}
			continue
		}
		if current != nil && current.Type == row.DetectedType {
			current.RowCount += pendingUnknown + 1
			current.MatchingRows++
			current.EndRow = row.RowNumber
			pendingUnknown = 0
			continue
		}
		closeCurrent()
		pendingUnknown = 0
		current = &DataSection{
			Type:         row.DetectedType,
			StartRow:     row.RowNumber,
			EndRow:       row.RowNumber,
			RowCount:     1,
			MatchingRows: 1,
		}
	}
	closeCurrent()
	return sections
}
