package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/admarket/backend/internal/infrastructure/cache"
	"github.com/admarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrCodeRateLimited is returned when a caller exhausts its window
const ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (cache.RateDecision, error)
}

// RateLimitKey identifies the caller: the authenticated user when known,
// otherwise the client address
func RateLimitKey(c *gin.Context) string {
	if id := c.GetString(JWTUserIDKey); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimit rejects callers over their limit with 429. A failing limiter
// lets the request through.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return RateLimitByKey(limiter, RateLimitKey, log)
}

// RateLimitByKey is RateLimit with a custom key extractor
func RateLimitByKey(limiter Limiter, keyFunc func(*gin.Context) string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				ErrCodeRateLimited, "Too many requests. Please try again later.", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
