package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func tracedRouter(handler gin.HandlerFunc, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Tracing(), SpanErrorMarker())
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(JWTUserIDKey, userID)
			c.Set(JWTIsAdminKey, true)
		}
	})
	r.Use(TracingAttributeInjector())
	r.GET("/campaigns/:id", handler)
	return r
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_RecordsRouteAndCaller(t *testing.T) {
	sr := setupTestTracer(t)
	r := tracedRouter(func(c *gin.Context) { c.Status(http.StatusOK) }, "user-9")

	req := httptest.NewRequest(http.MethodGet, "/campaigns/abc", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /campaigns/:id", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "req-123", attrs["request_id"].AsString())
	assert.Equal(t, "user-9", attrs["user_id"].AsString())
	assert.True(t, attrs["user.admin"].AsBool())
	assert.Equal(t, "abc", attrs["campaign_id"].AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	t.Run("server errors fail the span", func(t *testing.T) {
		sr := setupTestTracer(t)
		r := tracedRouter(func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) }, "")

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/campaigns/abc", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		_, hasUser := spanAttrs(spans[0])["user_id"]
		assert.False(t, hasUser)
	})

	for _, status := range []int{http.StatusPaymentRequired, http.StatusConflict, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			sr := setupTestTracer(t)
			r := tracedRouter(func(c *gin.Context) { c.Status(status) }, "user-1")

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/campaigns/abc", nil))

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.NotEqual(t, codes.Error, spans[0].Status().Code, "refusals are not failures")
			events := spans[0].Events()
			require.Len(t, events, 1)
			assert.Equal(t, "request.rejected", events[0].Name)
		})
	}
}

func TestTracing_SkipsHealthCheck(t *testing.T) {
	sr := setupTestTracer(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Tracing())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/payments/balance", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, sr.Ended())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/payments/balance", nil))
	assert.Len(t, sr.Ended(), 1)
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TracingWithConfig(TracingConfig{Enabled: false}), SpanErrorMarker(), TracingAttributeInjector())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, sr.Ended())
}
