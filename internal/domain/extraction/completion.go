package extraction

import "context"

// Completion operations
const (
	OperationAnalyze = "analyze"
	OperationExtract = "extract"
)

// CompletionRequest is one call to an external model. Document carries raw
// bytes for PDF and image inputs; MIMEType is empty for text-only requests.
type CompletionRequest struct {
	Operation    string
	SystemPrompt string
	UserPrompt   string
	Document     []byte
	MIMEType     string
	Schema       map[string]any
}

// HasDocument reports whether the request attaches a binary document
func (r CompletionRequest) HasDocument() bool {
	return len(r.Document) > 0 && r.MIMEType != ""
}

// CompletionService returns the model's raw text answer, expected to hold
// a JSON object. Implementations must respect ctx cancellation.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
