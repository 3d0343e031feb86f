package sheetimport

import (
	"strings"
	"unicode/utf8"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
)

// Score weights for header matching.
const (
	scoreExact            = 1000
	scoreHeaderHasSynonym = 10
	scoreSynonymHasHeader = 5
	minHeaderLength       = 3
)

// CanonicalFields lists every field the mapper recognises, in the order
// used to break score ties.
var CanonicalFields = []extraction.Field{
	extraction.FieldClient,
	extraction.FieldProject,
	extraction.FieldTotalValue,
	extraction.FieldSignedDate,
	extraction.FieldExpectedDate,
	extraction.FieldAmount,
	extraction.FieldDueDate,
	extraction.FieldDescription,
	extraction.FieldVendor,
	extraction.FieldStatus,
	extraction.FieldCategory,
	extraction.FieldNotes,
	extraction.FieldInvoiceNumber,
	extraction.FieldReceivedDate,
	extraction.FieldReceivedAmount,
	extraction.FieldPaidDate,
}

// Synonyms are stored folded (lowercase, no accents).
var fieldSynonyms = map[extraction.Field][]string{
	extraction.FieldClient:         {"cliente", "client", "nome do cliente", "contratante", "customer"},
	extraction.FieldProject:        {"projeto", "project", "nome do projeto", "obra", "empreendimento"},
	extraction.FieldTotalValue:     {"valor total", "valor do contrato", "valor contrato", "total value", "contract value"},
	extraction.FieldSignedDate:     {"data de assinatura", "data assinatura", "assinatura", "data do contrato", "signed date", "signature date"},
	extraction.FieldExpectedDate:   {"data prevista", "data esperada", "previsao", "previsao de recebimento", "expected date"},
	extraction.FieldAmount:         {"valor", "amount", "valor da parcela", "valor parcela", "montante", "quantia"},
	extraction.FieldDueDate:        {"vencimento", "data de vencimento", "data vencimento", "due date"},
	extraction.FieldDescription:    {"descricao", "description", "historico", "detalhe", "item"},
	extraction.FieldVendor:         {"fornecedor", "vendor", "supplier", "prestador", "favorecido"},
	extraction.FieldStatus:         {"status", "situacao"},
	extraction.FieldCategory:       {"categoria", "category", "tipo"},
	extraction.FieldNotes:          {"observacoes", "observacao", "obs", "notas", "notes"},
	extraction.FieldInvoiceNumber:  {"nota fiscal", "numero da nota", "nf", "invoice", "invoice number"},
	extraction.FieldReceivedDate:   {"data de recebimento", "data recebimento", "recebido em", "received date"},
	extraction.FieldReceivedAmount: {"valor recebido", "received amount"},
	extraction.FieldPaidDate:       {"data de pagamento", "data pagamento", "pago em", "paid date"},
}

// Synonyms returns the folded header synonyms for a field.
func Synonyms(field extraction.Field) []string {
	return fieldSynonyms[field]
}

// ScoreHeader scores one folded header against one folded synonym.
func ScoreHeader(header, synonym string) int {
	if header == "" || synonym == "" {
		return 0
	}
	if header == synonym {
		return scoreExact
	}
	if strings.Contains(header, synonym) {
		return utf8.RuneCountInString(synonym) * scoreHeaderHasSynonym
	}
	headerLen := utf8.RuneCountInString(header)
	if headerLen >= minHeaderLength && strings.Contains(synonym, header) {
		return headerLen * scoreSynonymHasHeader
	}
	return 0
}

// DetectColumns maps header cells to canonical fields.
//
// Every header is scored against every synonym of a field and the best
// synonym score is kept per column. Each field then takes the column with
// the highest score, the leftmost one on ties. One column may feed several
// fields. Fields without a positive score are absent.
func DetectColumns(headers []string) extraction.ColumnMapping {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = locale.FoldHeader(h)
	}

	mapping := extraction.ColumnMapping{
		Columns: make(map[extraction.Field]int),
		Scores:  make(map[extraction.Field]int),
	}
	for _, field := range CanonicalFields {
		bestCol, bestScore := -1, 0
		for col, header := range folded {
			for _, syn := range fieldSynonyms[field] {
				if s := ScoreHeader(header, syn); s > bestScore {
					bestCol, bestScore = col, s
				}
			}
		}
		if bestCol >= 0 {
			mapping.Columns[field] = bestCol
			mapping.Scores[field] = bestScore
		}
	}
	return mapping
}
