package logger

import (
	"context"

	"github.com/arqcashflow/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
	scopeKey
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := lookup(ctx); ok {
		return l
	}
	return zap.NewNop()
}

func lookup(ctx context.Context) (*zap.Logger, bool) {
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	return l, ok && l != nil
}

// WithRequestID stores the request ID and a logger carrying it
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithContext(ctx, FromContext(ctx).With(zap.String("request_id", requestID)))
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithScope stores the caller's team scope and a logger carrying its IDs
func WithScope(ctx context.Context, scope shared.TeamScope) context.Context {
	ctx = context.WithValue(ctx, scopeKey, scope)
	return WithContext(ctx, FromContext(ctx).With(ScopeFields(scope)...))
}

// ScopeFromContext returns the team scope set by WithScope
func ScopeFromContext(ctx context.Context) (shared.TeamScope, bool) {
	scope, ok := ctx.Value(scopeKey).(shared.TeamScope)
	return scope, ok
}

// ScopeFields renders a team scope as log fields
func ScopeFields(scope shared.TeamScope) []zap.Field {
	return []zap.Field{
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("user_id", scope.UserID.String()),
	}
}

// GetTraceID returns the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// Ctx returns the context logger with the active trace and span IDs added
func Ctx(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
