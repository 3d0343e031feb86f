package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ImportMetrics tracks the document import pipeline: files by outcome,
// entities created and rejected, and model latency.
// A nil *ImportMetrics is valid and records nothing.
type ImportMetrics struct {
	logger *zap.Logger

	filesTotal        *Counter
	entitiesCreated   *Counter
	entityErrors      *Counter
	duplicatesSkipped *Counter
	aiLatency         *Histogram
	aiFailures        *Counter
}

// ImportMetricsConfig holds configuration for import metrics.
type ImportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// AIDurationBuckets are bucket boundaries for model completion latency (seconds).
var AIDurationBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60, 120}

// Import metric attribute keys
var (
	AttrFileStatus  = attribute.Key("file_status")
	AttrEntityType  = attribute.Key("entity_type")
	AttrAIProvider  = attribute.Key("ai_provider")
	AttrAIOperation = attribute.Key("ai_operation")
	AttrAIOutcome   = attribute.Key("ai_outcome")
)

// NewImportMetrics creates a new ImportMetrics instance.
func NewImportMetrics(cfg ImportMetricsConfig) (*ImportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ImportMetrics{logger: logger}
	var err error

	m.filesTotal, err = NewCounter(cfg.Meter,
		"arq_import_files_total",
		"Total number of imported files by outcome",
		"{files}",
	)
	if err != nil {
		return nil, err
	}

	m.entitiesCreated, err = NewCounter(cfg.Meter,
		"arq_import_entities_created_total",
		"Total number of entities created by imports",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	m.entityErrors, err = NewCounter(cfg.Meter,
		"arq_import_entity_errors_total",
		"Total number of entities rejected during import",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	m.duplicatesSkipped, err = NewCounter(cfg.Meter,
		"arq_import_duplicates_skipped_total",
		"Total number of duplicate entities skipped",
		"{entities}",
	)
	if err != nil {
		return nil, err
	}

	m.aiLatency, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "arq_ai_completion_duration_seconds",
		Description: "Model completion latency",
		Unit:        "s",
		Boundaries:  AIDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.aiFailures, err = NewCounter(cfg.Meter,
		"arq_ai_completion_failures_total",
		"Total number of failed model completions",
		"{calls}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordFile records one processed file with its final status.
func (m *ImportMetrics) RecordFile(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.filesTotal.Inc(ctx, AttrFileStatus.String(status))
}

// RecordEntitiesCreated records created entities of one type.
func (m *ImportMetrics) RecordEntitiesCreated(ctx context.Context, entityType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entitiesCreated.Add(ctx, int64(n), AttrEntityType.String(entityType))
}

// RecordEntityErrors records rejected entities.
func (m *ImportMetrics) RecordEntityErrors(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entityErrors.Add(ctx, int64(n))
}

// RecordDuplicates records skipped duplicates.
func (m *ImportMetrics) RecordDuplicates(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicatesSkipped.Add(ctx, int64(n))
}

// ObserveCompletion records the latency of one model call.
func (m *ImportMetrics) ObserveCompletion(ctx context.Context, provider, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.aiFailures.Inc(ctx, AttrAIProvider.String(provider), AttrAIOperation.String(operation))
	}
	m.aiLatency.RecordDuration(ctx, d,
		AttrAIProvider.String(provider),
		AttrAIOperation.String(operation),
		AttrAIOutcome.String(outcome),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewImportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
