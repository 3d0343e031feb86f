package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ProviderGemini is the provider name used in config and metrics.
const ProviderGemini = "gemini"

// GeminiClient calls the Gemini generateContent API with a JSON response
// schema. It reads PDFs and images natively.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a GeminiClient. Call Close when done.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, temperature: 0.1}, nil
}

// Name returns the provider name
func (c *GeminiClient) Name() string {
	return ProviderGemini
}

// Close releases the underlying connection
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Complete sends one generateContent request.
func (c *GeminiClient) Complete(ctx context.Context, req extraction.CompletionRequest) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.ResponseMIMEType = "application/json"
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}
	if len(req.Schema) > 0 {
		model.ResponseSchema = toGenaiSchema(req.Schema)
	}

	parts := []genai.Part{genai.Text(req.UserPrompt)}
	if req.HasDocument() {
		parts = append(parts, genai.Blob{MIMEType: req.MIMEType, Data: req.Document})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w (finish reason %v)", ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}
	return b.String(), nil
}

func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: gemini: %w", ErrPermanent, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.Code) {
		return fmt.Errorf("%w: gemini: %w", ErrPermanent, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

// toGenaiSchema converts the JSON Schema subset Gemini understands.
// Validation keywords (pattern, bounds, additionalProperties) are dropped
// here and enforced when the response is parsed.
func toGenaiSchema(s map[string]any) *genai.Schema {
	out := &genai.Schema{}
	switch s["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if d, ok := s["description"].(string); ok {
		out.Description = d
	}
	if enum, ok := s["enum"].([]any); ok {
		for _, v := range enum {
			if str, ok := v.(string); ok {
				out.Enum = append(out.Enum, str)
			}
		}
	}
	if req, ok := s["required"].([]any); ok {
		for _, v := range req {
			if str, ok := v.(string); ok {
				out.Required = append(out.Required, str)
			}
		}
	}
	if props, ok := s["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if ps, ok := p.(map[string]any); ok {
				out.Properties[name] = toGenaiSchema(ps)
			}
		}
	}
	if items, ok := s["items"].(map[string]any); ok {
		out.Items = toGenaiSchema(items)
	}
	return out
}
