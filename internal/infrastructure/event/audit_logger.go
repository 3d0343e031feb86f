package event

import (
	"context"
	"sort"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ZapAuditHandler writes audit events to a dedicated zap logger.
type ZapAuditHandler struct {
	logger *zap.Logger
}

// NewZapAuditHandler creates a handler logging under the "audit" name
func NewZapAuditHandler(l *zap.Logger) *ZapAuditHandler {
	return &ZapAuditHandler{logger: l.Named("audit")}
}

// Handle logs one event with its attributes as fields
func (h *ZapAuditHandler) Handle(ctx context.Context, event bulk.AuditEvent) error {
	fields := make([]zap.Field, 0, len(event.Attributes)+5)
	fields = append(fields,
		zap.String("event_type", event.Type),
		zap.String("tenant_id", event.TenantID.String()),
		zap.String("user_id", event.UserID.String()),
		zap.Time("occurred_at", event.OccurredAt),
	)
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	keys := make([]string, 0, len(event.Attributes))
	for k := range event.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, event.Attributes[k]))
	}

	h.logger.Info("audit", fields...)
	return nil
}

// NewZapAuditSink returns a started bus with the zap handler subscribed to
// every event.
func NewZapAuditSink(ctx context.Context, l *zap.Logger, bufferSize int) *AuditBus {
	bus := NewAuditBus(l, bufferSize)
	bus.Subscribe(NewZapAuditHandler(l))
	_ = bus.Start(ctx)
	return bus
}
