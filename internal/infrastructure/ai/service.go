package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"go.uber.org/zap"
)

// Config selects and configures the model providers.
type Config struct {
	Enabled        bool
	Provider       string // text requests: openai | gemini
	VisionProvider string // requests with a document: openai | gemini
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiModel    string
	Timeout        time.Duration
	MaxRetries     int
}

// Service is the configured CompletionService plus the resources it holds.
type Service struct {
	extraction.CompletionService
	closers []io.Closer
}

// Close releases provider connections
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// New builds the routed, resilient completion service described by cfg.
// It returns nil when AI is disabled.
func New(ctx context.Context, cfg Config, observer CompletionObserver, logger *zap.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VisionProvider == "" {
		cfg.VisionProvider = cfg.Provider
	}

	svc := &Service{}
	built := map[string]extraction.CompletionService{}
	build := func(name string) (extraction.CompletionService, error) {
		if client, ok := built[name]; ok {
			return client, nil
		}
		var client extraction.CompletionService
		switch name {
		case ProviderOpenAI:
			if cfg.OpenAIAPIKey == "" {
				return nil, errors.New("ai: openai api key is required")
			}
			client = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		case ProviderGemini:
			if cfg.GeminiAPIKey == "" {
				return nil, errors.New("ai: gemini api key is required")
			}
			gemini, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return nil, err
			}
			svc.closers = append(svc.closers, gemini)
			client = gemini
		default:
			return nil, fmt.Errorf("ai: unknown provider %q", name)
		}
		retry := RetryConfig{Timeout: cfg.Timeout, MaxRetries: cfg.MaxRetries}
		wrapped := NewResilientClient(name, client, retry, observer, logger)
		built[name] = wrapped
		return wrapped, nil
	}

	text, err := build(cfg.Provider)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	document, err := build(cfg.VisionProvider)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.CompletionService = NewRouter(text, document)

	logger.Info("AI extraction enabled",
		zap.String("provider", cfg.Provider),
		zap.String("vision_provider", cfg.VisionProvider),
	)
	return svc, nil
}
