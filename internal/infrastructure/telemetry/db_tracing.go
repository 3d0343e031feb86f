package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	Tracing         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
}

// DBInstrumentation adds spans and query metrics to a gorm.DB
type DBInstrumentation struct {
	cfg     DBConfig
	logger  *zap.Logger
	metrics *DBMetrics
}

// NewDBInstrumentation creates the instrumentation. metrics may be nil.
func NewDBInstrumentation(cfg DBConfig, metrics *DBMetrics, logger *zap.Logger) *DBInstrumentation {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBInstrumentation{cfg: cfg, logger: logger, metrics: metrics}
}

const startedAtKey = "arq:started_at"

// Register installs otelgorm when tracing is on and the timing callbacks
// that feed slow-query span events and the query histogram.
func (d *DBInstrumentation) Register(db *gorm.DB) error {
	if d.cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
		if !d.cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}
	if !d.cfg.Tracing && d.metrics == nil {
		return nil
	}

	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("arq:before_create", d.before) },
		func() error { return cb.Create().After("gorm:create").Register("arq:after_create", d.after("create")) },
		func() error { return cb.Query().Before("gorm:query").Register("arq:before_query", d.before) },
		func() error { return cb.Query().After("gorm:query").Register("arq:after_query", d.after("select")) },
		func() error { return cb.Update().Before("gorm:update").Register("arq:before_update", d.before) },
		func() error { return cb.Update().After("gorm:update").Register("arq:after_update", d.after("update")) },
		func() error { return cb.Delete().Before("gorm:delete").Register("arq:before_delete", d.before) },
		func() error { return cb.Delete().After("gorm:delete").Register("arq:after_delete", d.after("delete")) },
		func() error { return cb.Raw().Before("gorm:raw").Register("arq:before_raw", d.before) },
		func() error { return cb.Raw().After("gorm:raw").Register("arq:after_raw", d.after("raw")) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	d.logger.Info("Database instrumentation registered",
		zap.Bool("tracing", d.cfg.Tracing),
		zap.Bool("metrics", d.metrics != nil),
		zap.Duration("slow_query_threshold", d.cfg.SlowQueryThresh),
	)
	return nil
}

func (d *DBInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func (d *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)

		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		d.metrics.RecordQuery(ctx, operation, db.Statement.Table, elapsed, failed)

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if elapsed > d.cfg.SlowQueryThresh {
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", d.cfg.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
