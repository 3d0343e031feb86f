package sheetimport

import (
	"testing"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProcessFile_SingleContractAmongUnrelatedRows(t *testing.T) {
	csv := "client,project,totalValue,signedDate,notes\n" +
		"LF - Livia Assan,Residencia Assan,85000,15/03/2024,\n" +
		",,,,reuniao semanal\n" +
		",,,,ligar para fornecedor\n" +
		",,,,conferir planta\n"

	p := NewProcessor(nil)
	result := p.ProcessFile([]byte(csv), "contratos.csv")

	require.Empty(t, result.Errors)
	require.Len(t, result.Sheets, 1)

	sheet := result.Sheets[0]
	assert.Equal(t, "contratos", sheet.Name)
	assert.Equal(t, 1, sheet.HeaderRow)

	typed := sheet.TypedRows()
	require.Len(t, typed, 1)
	row := typed[0]
	assert.Equal(t, extraction.RowContract, row.DetectedType)
	assert.Equal(t, 2, row.RowNumber)
	assert.Equal(t, "Livia Assan", row.Fields.Text[extraction.FieldClient])
	assert.Equal(t, "Residencia Assan", row.Fields.Text[extraction.FieldProject])
	assert.Equal(t, 85000.0, row.Fields.Amounts[extraction.FieldTotalValue])
	assert.Equal(t, "2024-03-15", row.Fields.Dates[extraction.FieldSignedDate])

	require.Len(t, sheet.Sections, 1)
	section := sheet.Sections[0]
	assert.Equal(t, extraction.RowContract, section.Type)
	assert.Equal(t, 1, section.RowCount)
	assert.Equal(t, 1.0, section.Confidence)

	counts := sheet.CountByType()
	assert.Equal(t, 1, counts[extraction.RowContract])
	assert.Equal(t, 3, counts[extraction.RowUnknown])
}

func TestProcessFile_UnsupportedExtension(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessFile([]byte("PK\x03\x04 not really a document"), "proposta.docx")

	assert.Empty(t, result.Sheets)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "proposta.docx")
	assert.Contains(t, result.Errors[0], ".docx")
}

func TestProcessFile_EmptyFile(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessFile(nil, "vazio.csv")

	assert.Empty(t, result.Sheets)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ErrEmptyFile.Error())
}

func TestProcessFile_CorruptWorkbook(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessFile([]byte("definitely not a zip"), "planilha.xlsx")

	assert.Empty(t, result.Sheets)
	require.Len(t, result.Errors, 1)
}

func TestProcessFile_HeaderAfterTitleRows(t *testing.T) {
	csv := "Controle Financeiro 2024;;\n" +
		";;\n" +
		"Descrição;Fornecedor;Valor;Vencimento\n" +
		"Cimento;Casa do Construtor;R$ 1.234,56;10/04/2024\n" +
		"Areia;Depósito Central;R$ 350,00;12/04/2024\n"

	result := NewProcessor(nil).ProcessFile([]byte(csv), "despesas.csv")

	require.Empty(t, result.Errors)
	require.Len(t, result.Sheets, 1)
	sheet := result.Sheets[0]
	assert.Equal(t, 3, sheet.HeaderRow)

	require.Len(t, sheet.Rows, 2)
	first := sheet.Rows[0]
	assert.Equal(t, 4, first.RowNumber)
	assert.Equal(t, extraction.RowExpense, first.DetectedType)
	assert.Equal(t, 1234.56, first.Fields.Amounts[extraction.FieldAmount])
	assert.Equal(t, "2024-04-10", first.Fields.Dates[extraction.FieldDueDate])
	assert.Equal(t, "Casa do Construtor", first.Fields.Text[extraction.FieldVendor])

	require.Len(t, sheet.Sections, 1)
	assert.Equal(t, extraction.RowExpense, sheet.Sections[0].Type)
	assert.Equal(t, 4, sheet.Sections[0].StartRow)
	assert.Equal(t, 5, sheet.Sections[0].EndRow)
}

func TestProcessFile_SheetWithoutHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"cliente", "projeto", "valor total", "data de assinatura"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Maria Souza", "Casa Praia", 120000, "01/02/2024"}))
	_, err := f.NewSheet("Notas")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notas", "A1", "apenas uma nota"))
	_, err = f.NewSheet("Vazia")
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result := NewProcessor(nil).ProcessFile(buf.Bytes(), "carteira.xlsx")

	require.Len(t, result.Sheets, 1)
	assert.Equal(t, "Sheet1", result.Sheets[0].Name)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Notas")
	assert.Contains(t, result.Errors[0], ErrMissingHeader.Error())

	rows := result.Sheets[0].TypedRows()
	require.Len(t, rows, 1)
	assert.Equal(t, 120000.0, rows[0].Fields.Amounts[extraction.FieldTotalValue])
	assert.Equal(t, "2024-02-01", rows[0].Fields.Dates[extraction.FieldSignedDate])
}

func TestParseRow(t *testing.T) {
	headers := []string{"Cliente", "Projeto", "Valor Total", "Data de Assinatura"}
	mapping := DetectColumns(headers)

	t.Run("Project code label fills empty project", func(t *testing.T) {
		cells := []extraction.RawCell{
			extraction.TextCell("LF - Livia Assan"),
			extraction.TextCell(""),
			extraction.TextCell("R$ 85.000,00"),
			extraction.TextCell("15/mar/24"),
		}
		fields := ParseRow(cells, mapping)

		assert.Equal(t, "Livia Assan", fields.Text[extraction.FieldClient])
		assert.Equal(t, "LF", fields.Text[extraction.FieldProject])
		assert.Equal(t, 85000.0, fields.Amounts[extraction.FieldTotalValue])
		assert.Equal(t, "2024-03-15", fields.Dates[extraction.FieldSignedDate])
	})

	t.Run("Unparseable values are absent", func(t *testing.T) {
		cells := []extraction.RawCell{
			extraction.TextCell("Ana"),
			extraction.TextCell("Loja"),
			extraction.TextCell("a combinar"),
			extraction.TextCell("31/02/2024"),
		}
		fields := ParseRow(cells, mapping)

		assert.False(t, fields.Has(extraction.FieldTotalValue))
		assert.False(t, fields.Has(extraction.FieldSignedDate))
		assert.Equal(t, extraction.RowUnknown, extraction.DetectRowType(fields))
	})

	t.Run("Typed cells bypass text parsing", func(t *testing.T) {
		amount := 3500.5
		cells := []extraction.RawCell{
			extraction.TextCell("Ana"),
			extraction.TextCell("Loja"),
			{Text: "3,500.50", Number: &amount},
		}
		fields := ParseRow(cells, mapping)

		assert.Equal(t, 3500.5, fields.Amounts[extraction.FieldTotalValue])
		assert.Equal(t, extraction.RowContract, extraction.DetectRowType(fields))
	})

	t.Run("Short rows are tolerated", func(t *testing.T) {
		fields := ParseRow([]extraction.RawCell{extraction.TextCell("Ana")}, mapping)
		assert.Equal(t, "Ana", fields.Text[extraction.FieldClient])
	})
}

func TestProcessSheet_Warnings(t *testing.T) {
	sheet := Sheet{
		Name: "Recebiveis",
		Rows: [][]extraction.RawCell{
			{extraction.TextCell("Cliente"), extraction.TextCell("Valor"), extraction.TextCell("Data Prevista")},
			{extraction.TextCell("Ana"), extraction.TextCell("a combinar"), extraction.TextCell("10/05/2024")},
			{extraction.TextCell("Bia"), extraction.TextCell("R$ 500,00"), extraction.TextCell("32/05/2024")},
			{extraction.TextCell("Caio"), extraction.TextCell("R$ 700,00"), extraction.TextCell("12/05/2024")},
		},
	}

	processed, err := NewProcessor(nil).ProcessSheet(sheet)

	require.NoError(t, err)
	require.Len(t, processed.Warnings, 2)
	assert.Equal(t, "row 2, column 'Valor': not a valid amount", processed.Warnings[0])
	assert.Equal(t, "row 3, column 'Data Prevista': not a valid date", processed.Warnings[1])
	assert.Len(t, processed.TypedRows(), 1)
}
