package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CompletionObserver receives the latency and outcome of every attempt.
type CompletionObserver interface {
	ObserveCompletion(ctx context.Context, provider, operation string, d time.Duration, err error)
}

// RetryConfig bounds each call and its retries.
type RetryConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:        90 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// ResilientClient wraps a provider with a per-attempt timeout, exponential
// backoff retries, tracing and latency metrics.
type ResilientClient struct {
	provider string
	next     extraction.CompletionService
	cfg      RetryConfig
	observer CompletionObserver
	logger   *zap.Logger
}

// NewResilientClient wraps next. observer may be nil.
func NewResilientClient(provider string, next extraction.CompletionService, cfg RetryConfig, observer CompletionObserver, logger *zap.Logger) *ResilientClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultRetryConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = d.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return &ResilientClient{
		provider: provider,
		next:     next,
		cfg:      cfg,
		observer: observer,
		logger:   logger.With(zap.String("ai_provider", provider)),
	}
}

// Complete implements extraction.CompletionService
func (c *ResilientClient) Complete(ctx context.Context, req extraction.CompletionRequest) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ai", req.Operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("ai.provider", c.provider),
		telemetry.WithAttribute("ai.document", req.HasDocument()),
	)
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	var (
		answer   string
		attempts int
	)
	operation := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		start := time.Now()
		out, err := c.next.Complete(callCtx, req)
		if c.observer != nil {
			c.observer.ObserveCompletion(ctx, c.provider, req.Operation, time.Since(start), err)
		}
		if err != nil {
			if errors.Is(err, ErrPermanent) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		answer = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Model call failed, retrying",
			zap.String("operation", req.Operation),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	telemetry.SetAttribute(span, "ai.attempts", attempts)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("%s %s failed after %d attempt(s): %w", c.provider, req.Operation, attempts, err)
	}
	return answer, nil
}
