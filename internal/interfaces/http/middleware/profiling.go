package middleware

import (
	"context"
	"strings"

	"github.com/admarket/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingLabels attaches the route pattern, method, resource and caller
// role to CPU samples taken while the handler runs. Place it after
// Authenticate so the role is known.
func ProfilingLabels() gin.HandlerFunc {
	return func(c *gin.Context) {
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	labels := map[string]string{
		telemetry.ProfilingLabelMethod:   c.Request.Method,
		telemetry.ProfilingLabelRoute:    route,
		telemetry.ProfilingLabelResource: resourceOf(route),
	}
	if c.GetString(JWTUserIDKey) != "" {
		labels[telemetry.ProfilingLabelRole] = "user"
		if c.GetBool(JWTIsAdminKey) {
			labels[telemetry.ProfilingLabelRole] = "admin"
		}
	}
	return labels
}

// resourceOf returns the first static segment after the version,
// so /api/v1/campaigns/:id/confirm gives campaigns
func resourceOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || (s[0] != 'v' && s[0] != 'V') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
