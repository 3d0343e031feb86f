package extractionapp

import (
	"github.com/arqcashflow/backend/internal/domain/extraction"
)

// Deterministic confidence levels
const (
	ConfidenceRule     = 1.0
	ConfidenceFallback = 0.7
)

// EntityFromRow converts a typed row into an entity. Unknown rows return
// ok=false.
func EntityFromRow(file, sheet string, row extraction.ProcessedRow) (extraction.ExtractedEntity, bool) {
	entityType, ok := row.DetectedType.EntityType()
	if !ok {
		return extraction.ExtractedEntity{}, false
	}

	confidence := ConfidenceRule
	if entityType == extraction.EntityContract && extraction.IsFallbackContract(row.Fields) {
		confidence = ConfidenceFallback
	}

	return extraction.ExtractedEntity{
		Type:       entityType,
		Confidence: confidence,
		Source:     extraction.SourceRef{File: file, Sheet: sheet, Row: row.RowNumber},
		Data:       dataFromFields(row.Fields),
	}, true
}

func dataFromFields(f extraction.ParsedFields) extraction.EntityData {
	amount := func(field extraction.Field) *float64 {
		v, ok := f.Amounts[field]
		if !ok {
			return nil
		}
		return &v
	}
	return extraction.EntityData{
		ClientName:     f.Text[extraction.FieldClient],
		ProjectName:    f.Text[extraction.FieldProject],
		Description:    f.Text[extraction.FieldDescription],
		Vendor:         f.Text[extraction.FieldVendor],
		Category:       f.Text[extraction.FieldCategory],
		Status:         f.Text[extraction.FieldStatus],
		InvoiceNumber:  f.Text[extraction.FieldInvoiceNumber],
		Notes:          f.Text[extraction.FieldNotes],
		TotalValue:     amount(extraction.FieldTotalValue),
		Amount:         amount(extraction.FieldAmount),
		ReceivedAmount: amount(extraction.FieldReceivedAmount),
		SignedDate:     f.Dates[extraction.FieldSignedDate],
		ExpectedDate:   f.Dates[extraction.FieldExpectedDate],
		DueDate:        f.Dates[extraction.FieldDueDate],
		ReceivedDate:   f.Dates[extraction.FieldReceivedDate],
		PaidDate:       f.Dates[extraction.FieldPaidDate],
	}
}
