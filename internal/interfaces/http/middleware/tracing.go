package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request through otelgin and tags it with
// the request ID. otelgin itself marks 5xx responses as errors.
func Tracing(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{
		otelgin.Middleware(serviceName),
		func(c *gin.Context) {
			span := trace.SpanFromContext(c.Request.Context())
			if id := GetRequestID(c); id != "" && span.IsRecording() {
				span.SetAttributes(attribute.String("request_id", id))
			}
			c.Next()
		},
	}
}

// TraceScope tags the active span with the caller's team. It must run after Auth.
func TraceScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if scope, ok := GetScope(c); ok && span.IsRecording() {
			span.SetAttributes(
				attribute.String("tenant_id", scope.TenantID.String()),
				attribute.String("user_id", scope.UserID.String()),
			)
		}
		c.Next()
	}
}
