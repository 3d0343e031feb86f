// Package event delivers audit events to their handlers off the request path.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"go.uber.org/zap"
)

// AuditHandler consumes audit events
type AuditHandler interface {
	Handle(ctx context.Context, event bulk.AuditEvent) error
}

// AuditHandlerFunc adapts a function to AuditHandler
type AuditHandlerFunc func(ctx context.Context, event bulk.AuditEvent) error

// Handle calls f
func (f AuditHandlerFunc) Handle(ctx context.Context, event bulk.AuditEvent) error {
	return f(ctx, event)
}

// DefaultBufferSize is the queue length used when none is configured.
const DefaultBufferSize = 256

type queuedEvent struct {
	ctx   context.Context
	event bulk.AuditEvent
}

// AuditBus implements bulk.AuditSink. Once started, Record queues the event
// and a single worker delivers it; a full queue drops the event. Before Start
// and after Stop events are delivered inline. Handler errors and panics are
// logged and never reach the caller.
type AuditBus struct {
	mu        sync.RWMutex
	handlers  map[string][]AuditHandler
	wildcards []AuditHandler
	logger    *zap.Logger
	queue     chan queuedEvent
	running   atomic.Bool
	dropped   atomic.Int64
	wg        sync.WaitGroup
}

// NewAuditBus creates a new audit bus
func NewAuditBus(logger *zap.Logger, bufferSize int) *AuditBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &AuditBus{
		handlers: make(map[string][]AuditHandler),
		logger:   logger,
		queue:    make(chan queuedEvent, bufferSize),
	}
}

// Subscribe registers a handler for the given event types, or for every
// event when none are given.
func (b *AuditBus) Subscribe(handler AuditHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		b.wildcards = append(b.wildcards, handler)
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
	}
	b.logger.Debug("audit handler subscribed", zap.Strings("event_types", eventTypes))
}

// Record delivers the event without blocking the caller
func (b *AuditBus) Record(ctx context.Context, event bulk.AuditEvent) {
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	if !b.running.Load() {
		b.mu.RUnlock()
		b.dispatch(ctx, event)
		return
	}
	select {
	case b.queue <- queuedEvent{ctx: ctx, event: event}:
	default:
		b.dropped.Add(1)
		b.logger.Warn("audit queue full, dropping event", zap.String("event_type", event.Type))
	}
	b.mu.RUnlock()
}

// Start starts the delivery worker
func (b *AuditBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Load() {
		return nil
	}
	b.running.Store(true)
	b.wg.Add(1)
	go b.loop(b.queue)
	b.logger.Info("audit bus started")
	return nil
}

// Stop drains the queue and stops the worker. It returns early with the
// context error when ctx ends first.
func (b *AuditBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	close(b.queue)
	b.queue = make(chan queuedEvent, cap(b.queue))
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("audit bus stopped", zap.Int64("dropped", b.dropped.Load()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded because the queue was full
func (b *AuditBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *AuditBus) loop(queue <-chan queuedEvent) {
	defer b.wg.Done()
	for q := range queue {
		b.dispatch(q.ctx, q.event)
	}
}

func (b *AuditBus) dispatch(ctx context.Context, event bulk.AuditEvent) {
	b.mu.RLock()
	handlers := make([]AuditHandler, 0, len(b.handlers[event.Type])+len(b.wildcards))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.wildcards...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("audit handler failed",
				zap.String("event_type", event.Type),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *AuditBus) dispatchToHandler(ctx context.Context, handler AuditHandler, event bulk.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("audit handler panicked",
				zap.String("event_type", event.Type),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ bulk.AuditSink = (*AuditBus)(nil)
