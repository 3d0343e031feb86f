package extractionapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var errNoJSONObject = errors.New("response holds no JSON object")

// extractJSONObject strips markdown fences and surrounding prose and
// returns the outermost JSON object in content.
func extractJSONObject(content string) (string, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return s[start : end+1], nil
}

// decodeValidated decodes a JSON document into a generic value and checks
// it against schema.
func decodeValidated(raw []byte, schema *jsonschema.Schema) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("does not match schema: %w", err)
	}
	return v, nil
}

type sheetAnalysis struct {
	ContainsFinancialData bool                    `json:"containsFinancialData"`
	EntityTypes           []extraction.EntityType `json:"entityTypes"`
	Notes                 string                  `json:"notes"`
}

func parseAnalysis(content string) (sheetAnalysis, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return sheetAnalysis{}, err
	}
	if _, err := decodeValidated([]byte(obj), analysisValidator); err != nil {
		return sheetAnalysis{}, fmt.Errorf("analysis %w", err)
	}
	var a sheetAnalysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return sheetAnalysis{}, err
	}
	return a, nil
}

// entityScope describes where parsed entities come from. rows, when set,
// is the set of source rows an entity may cite.
type entityScope struct {
	file          string
	sheet         string
	rows          map[int]bool
	label         string
	minConfidence float64
}

type modelEntity struct {
	Type       extraction.EntityType `json:"type"`
	Confidence float64               `json:"confidence"`
	Row        int                   `json:"row"`
	Data       extraction.EntityData `json:"data"`
}

// parseEntities turns a model answer into entities. The response is
// untrusted: every entity is normalised and validated on its own and
// rejected ones are reported without affecting the rest.
func parseEntities(content string, scope entityScope) ([]extraction.ExtractedEntity, []string, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return nil, nil, err
	}
	var envelope struct {
		Entities []json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var (
		entities []extraction.ExtractedEntity
		problems []string
	)
	for i, raw := range envelope.Entities {
		entity, err := parseEntity(raw, scope)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: entity %d rejected: %s", scope.label, i+1, err.Error()))
			continue
		}
		entities = append(entities, entity)
	}
	return entities, problems, nil
}

func parseEntity(raw json.RawMessage, scope entityScope) (extraction.ExtractedEntity, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return extraction.ExtractedEntity{}, fmt.Errorf("not an object")
	}
	normalized, err := json.Marshal(normalizeEntity(generic))
	if err != nil {
		return extraction.ExtractedEntity{}, err
	}
	if _, err := decodeValidated(normalized, entityValidator); err != nil {
		return extraction.ExtractedEntity{}, err
	}

	var me modelEntity
	if err := json.Unmarshal(normalized, &me); err != nil {
		return extraction.ExtractedEntity{}, err
	}
	if scope.rows != nil && me.Row == 0 {
		return extraction.ExtractedEntity{}, errors.New("missing source row")
	}
	if scope.rows != nil && !scope.rows[me.Row] {
		return extraction.ExtractedEntity{}, fmt.Errorf("cites row %d outside this request", me.Row)
	}
	if me.Confidence < scope.minConfidence {
		return extraction.ExtractedEntity{}, fmt.Errorf("confidence %.2f below minimum %.2f", me.Confidence, scope.minConfidence)
	}

	return extraction.ExtractedEntity{
		Type:       me.Type,
		Confidence: me.Confidence,
		Source:     extraction.SourceRef{File: scope.file, Sheet: scope.sheet, Row: me.Row},
		Data:       me.Data,
	}, nil
}

var entityTypeAliases = map[string]extraction.EntityType{
	"contract":   extraction.EntityContract,
	"contrato":   extraction.EntityContract,
	"receivable": extraction.EntityReceivable,
	"recebivel":  extraction.EntityReceivable,
	"receita":    extraction.EntityReceivable,
	"expense":    extraction.EntityExpense,
	"despesa":    extraction.EntityExpense,
	"custo":      extraction.EntityExpense,
}

var (
	textKeys   = []string{"clientName", "projectName", "description", "vendor", "category", "status", "invoiceNumber", "notes"}
	amountKeys = []string{"totalValue", "amount", "receivedAmount"}
	dateKeys   = []string{"signedDate", "expectedDate", "dueDate", "receivedDate", "paidDate"}
)

// normalizeEntity coerces Brazilian-formatted values, drops unknown and
// empty keys and maps Portuguese type names.
func normalizeEntity(in map[string]any) map[string]any {
	out := make(map[string]any, 4)
	if t, ok := in["type"].(string); ok {
		if mapped, ok := entityTypeAliases[locale.Fold(strings.TrimSpace(t))]; ok {
			out["type"] = string(mapped)
		} else {
			out["type"] = t
		}
	}
	if c, ok := coerceNumber(in["confidence"]); ok {
		out["confidence"] = c
	}
	if r, ok := coerceNumber(in["row"]); ok && r == math.Trunc(r) {
		out["row"] = r
	}

	data := map[string]any{}
	if src, ok := in["data"].(map[string]any); ok {
		for _, k := range textKeys {
			if s, ok := src[k].(string); ok {
				if s = locale.CleanText(s); s != "" {
					data[k] = s
				}
			}
		}
		for _, k := range amountKeys {
			if v, ok := coerceAmount(src[k]); ok {
				data[k] = v
			}
		}
		for _, k := range dateKeys {
			if s, ok := src[k].(string); ok {
				if iso := locale.ParseDate(s); iso != nil {
					data[k] = *iso
				}
			}
		}
	}
	out["data"] = data
	return out
}

func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func coerceAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if parsed := locale.ParseCurrency(n); parsed != nil {
			return *parsed, true
		}
	}
	return 0, false
}
