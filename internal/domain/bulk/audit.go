package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit event types
const (
	AuditFileProcessed  = "import.file.processed"
	AuditBatchCompleted = "import.batch.completed"
)

// AuditEvent describes something a tenant did through the import API.
type AuditEvent struct {
	Type       string
	TenantID   uuid.UUID
	UserID     uuid.UUID
	OccurredAt time.Time
	Attributes map[string]any
}

// NewAuditEvent stamps an event with the current time
func NewAuditEvent(eventType string, tenantID, userID uuid.UUID, attrs map[string]any) AuditEvent {
	return AuditEvent{
		Type:       eventType,
		TenantID:   tenantID,
		UserID:     userID,
		OccurredAt: time.Now(),
		Attributes: attrs,
	}
}

// AuditSink receives audit events. Record must not block the caller or
// report failures back to it.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}
