package telemetry

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DBMetrics records query latency and connection pool usage.
// A nil *DBMetrics records nothing.
type DBMetrics struct {
	queryDuration *Histogram
	queryErrors   *Counter
}

// NewDBMetrics creates the query instruments and, when pool is not nil,
// observable gauges reading its sql.DBStats on every collection.
func NewDBMetrics(meter metric.Meter, pool *sql.DB) (*DBMetrics, error) {
	if meter == nil {
		return nil, &MetricsError{Op: "NewDBMetrics", Err: "meter cannot be nil"}
	}
	m := &DBMetrics{}
	var err error

	m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "arq_db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.queryErrors, err = NewCounter(meter,
		"arq_db_query_errors_total",
		"Total number of failed database statements",
		"{queries}",
	)
	if err != nil {
		return nil, err
	}

	if pool != nil {
		if err := registerPoolGauges(meter, pool); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordQuery records one statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
	}
	m.queryDuration.RecordDuration(ctx, d, attrs...)
	if failed {
		m.queryErrors.Inc(ctx, attrs...)
	}
}

func registerPoolGauges(meter metric.Meter, pool *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("arq_db_pool_connections",
		metric.WithDescription("Connections in the database pool by state"),
		metric.WithUnit("{connections}"),
	)
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("arq_db_pool_wait_total",
		metric.WithDescription("Total number of waits for a pooled connection"),
		metric.WithUnit("{waits}"),
	)
	if err != nil {
		return err
	}

	state := attribute.Key("state")
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := pool.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(state.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(state.String("idle")))
		o.ObserveInt64(conns, int64(s.MaxOpenConnections), metric.WithAttributes(state.String("max")))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, waits)
	return err
}
