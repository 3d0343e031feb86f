package extractionapp

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const isoDatePattern = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`

// entitySchemaJSON describes one entity as the model must emit it.
const entitySchemaJSON = `{
  "type": "object",
  "required": ["type", "confidence", "data"],
  "properties": {
    "type": {"type": "string", "enum": ["contract", "receivable", "expense"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "row": {"type": "integer", "minimum": 1},
    "data": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "clientName": {"type": "string"},
        "projectName": {"type": "string"},
        "description": {"type": "string"},
        "vendor": {"type": "string"},
        "category": {"type": "string"},
        "status": {"type": "string"},
        "invoiceNumber": {"type": "string"},
        "notes": {"type": "string"},
        "totalValue": {"type": "number", "exclusiveMinimum": 0},
        "amount": {"type": "number", "exclusiveMinimum": 0},
        "receivedAmount": {"type": "number", "minimum": 0},
        "signedDate": {"type": "string", "pattern": "` + isoDatePattern + `"},
        "expectedDate": {"type": "string", "pattern": "` + isoDatePattern + `"},
        "dueDate": {"type": "string", "pattern": "` + isoDatePattern + `"},
        "receivedDate": {"type": "string", "pattern": "` + isoDatePattern + `"},
        "paidDate": {"type": "string", "pattern": "` + isoDatePattern + `"}
      }
    }
  }
}`

const analysisSchemaJSON = `{
  "type": "object",
  "required": ["containsFinancialData", "entityTypes"],
  "properties": {
    "containsFinancialData": {"type": "boolean"},
    "entityTypes": {
      "type": "array",
      "items": {"type": "string", "enum": ["contract", "receivable", "expense"]}
    },
    "notes": {"type": "string"}
  }
}`

var (
	entityValidator   = jsonschema.MustCompileString("entity.json", entitySchemaJSON)
	analysisValidator = jsonschema.MustCompileString("analysis.json", analysisSchemaJSON)

	// entityResponseSchema is sent with extraction requests.
	entityResponseSchema = map[string]any{
		"type":     "object",
		"required": []any{"entities"},
		"properties": map[string]any{
			"entities": map[string]any{
				"type":  "array",
				"items": mustDecodeSchema(entitySchemaJSON),
			},
		},
	}

	// analysisResponseSchema is sent with analysis requests.
	analysisResponseSchema = mustDecodeSchema(analysisSchemaJSON)
)

func mustDecodeSchema(s string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		panic(err)
	}
	return out
}
