package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfilingLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(JWTUserIDKey, "u-admin")
		c.Set(JWTIsAdminKey, true)
	}, ProfilingLabels())

	got := map[string]string{}
	r.POST("/api/v1/campaigns/:id/confirm", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(k, v string) bool {
			got[k] = v
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/c-42/confirm", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{
		"method":   http.MethodPost,
		"route":    "/api/v1/campaigns/:id/confirm",
		"resource": "campaigns",
		"role":     "admin",
	}, got)
}

func TestResourceOf(t *testing.T) {
	tests := map[string]string{
		"/api/v1/campaigns/:id/confirm": "campaigns",
		"/api/v1/admin/users/:id/block": "admin",
		"/health":                       "health",
		"/api/v2":                       "",
		"":                              "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceOf(route), route)
	}
}
