package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	openai "github.com/sashabaranov/go-openai"
)

// ProviderOpenAI is the provider name used in config and metrics.
const ProviderOpenAI = "openai"

// OpenAIClient calls the chat completions API in JSON mode.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient creates an OpenAIClient. baseURL may be empty.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: 0.1,
	}
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

// Complete sends one chat completion. Images are attached as data URLs;
// other binary documents are rejected.
func (c *OpenAIClient) Complete(ctx context.Context, req extraction.CompletionRequest) (string, error) {
	system := req.SystemPrompt
	if len(req.Schema) > 0 {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return "", fmt.Errorf("%w: marshal schema: %w", ErrPermanent, err)
		}
		system += "\nThe JSON object must follow this JSON Schema:\n" + string(schema)
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt}
	if req.HasDocument() {
		if !strings.HasPrefix(req.MIMEType, "image/") {
			return "", fmt.Errorf("%w: %w: %s", ErrPermanent, ErrUnsupportedDocument, req.MIMEType)
		}
		user.Content = ""
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.UserPrompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(req.MIMEType, req.Document),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.HTTPStatusCode) {
		return fmt.Errorf("%w: openai: %w", ErrPermanent, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isPermanentStatus(reqErr.HTTPStatusCode) {
		return fmt.Errorf("%w: openai: %w", ErrPermanent, err)
	}
	return fmt.Errorf("openai: %w", err)
}

// isPermanentStatus treats client errors other than throttling as final.
func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
