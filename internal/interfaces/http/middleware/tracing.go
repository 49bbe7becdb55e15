package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the server span middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are exact request paths that get no span, such as health checks.
	SkipPaths []string
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{ServiceName: "admarket-api", Enabled: true, SkipPaths: []string{"/health"}}
}

// Tracing is TracingWithConfig(DefaultTracingConfig()).
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig starts a server span per request via otelgin. Span
// names follow "METHOD /route/:param".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := slices.Clone(cfg.SkipPaths)
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(skip, r.URL.Path)
	}))
}

// SpanErrorMarker classifies the response on the server span. A 5xx marks
// the span failed. A 4xx is a refused request (insufficient funds, a
// transition from the wrong state) and is recorded as an event on an
// otherwise healthy span. Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, "Internal Server Error")
		case status >= http.StatusBadRequest:
			span.AddEvent("request.rejected", trace.WithAttributes(
				attribute.Int("http.status_code", status),
				attribute.String("reason", http.StatusText(status)),
			))
		}
	}
}

// TracingAttributeInjector tags the server span with the request id, the
// caller and, on campaign routes, the campaign id. Place it after
// RequestID and Authenticate.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(callerAttributes(c)...)
		}
		c.Next()
	}
}

func callerAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := c.GetString(RequestIDKey); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if id := c.GetString(JWTUserIDKey); id != "" {
		attrs = append(attrs, attribute.String("user_id", id))
	}
	if c.GetBool(JWTIsAdminKey) {
		attrs = append(attrs, attribute.Bool("user.admin", true))
	}
	if strings.Contains(c.FullPath(), "/campaigns/:id") {
		attrs = append(attrs, attribute.String(telemetry.SpanAttrCampaignID, c.Param("id")))
	}
	return attrs
}
