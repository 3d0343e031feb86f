package ai

import (
	"context"

	"github.com/arqcashflow/backend/internal/domain/extraction"
)

// Router sends requests with an attached document to the document
// provider and everything else to the text provider.
type Router struct {
	text     extraction.CompletionService
	document extraction.CompletionService
}

// NewRouter creates a Router. When document is nil the text provider
// serves every request.
func NewRouter(text, document extraction.CompletionService) *Router {
	if document == nil {
		document = text
	}
	return &Router{text: text, document: document}
}

// Complete implements extraction.CompletionService
func (r *Router) Complete(ctx context.Context, req extraction.CompletionRequest) (string, error) {
	if req.HasDocument() {
		return r.document.Complete(ctx, req)
	}
	return r.text.Complete(ctx, req)
}
