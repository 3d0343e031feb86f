// Package ai adapts hosted language models to the extraction
// CompletionService: OpenAI for text and images, Gemini for PDFs, images
// and text, with routing, timeouts and retries on top.
package ai

import "errors"

var (
	// ErrPermanent marks failures that retrying cannot fix.
	ErrPermanent = errors.New("permanent model failure")

	// ErrUnsupportedDocument is returned when a provider cannot read the
	// attached document type.
	ErrUnsupportedDocument = errors.New("document type not supported by provider")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)
