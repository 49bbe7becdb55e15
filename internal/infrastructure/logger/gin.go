package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin context keys written by the request-ID and authentication middleware.
const (
	ginRequestIDKey = "request_id"
	ginUserIDKey    = "user_id"
)

type accessLogOptions struct {
	skipPaths map[string]struct{}
}

// AccessLogOption configures AccessLog.
type AccessLogOption func(*accessLogOptions)

// SkipPaths suppresses the access line for exact request paths such as
// the health check. The request logger is still attached to the context.
func SkipPaths(paths ...string) AccessLogOption {
	return func(o *accessLogOptions) {
		for _, p := range paths {
			o.skipPaths[p] = struct{}{}
		}
	}
}

// AccessLog attaches a request-scoped logger to the request context and
// writes one line per request once the handler chain returns. Campaign
// routes carry the campaign id so a campaign's history can be grepped.
func AccessLog(base *zap.Logger, opts ...AccessLogOption) gin.HandlerFunc {
	o := accessLogOptions{skipPaths: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString(ginRequestIDKey)

		ctx, reqLog := WithRequestID(c.Request.Context(), base, requestID)
		reqLog = reqLog.With(zap.String("method", c.Request.Method))
		if campaignID := campaignParam(c); campaignID != "" {
			ctx, reqLog = WithCampaignID(ctx, reqLog, campaignID)
		}
		c.Request = c.Request.WithContext(WithContext(ctx, reqLog))

		c.Next()

		if _, skip := o.skipPaths[c.Request.URL.Path]; skip {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if userID := c.GetString(ginUserIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			reqLog.Warn("HTTP request", fields...)
		default:
			reqLog.Info("HTTP request", fields...)
		}
	}
}

// Recover turns a handler panic into a 500 in the API error envelope. The
// panic is logged with its stack and the request's identifiers.
func Recover(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := c.GetString(ginRequestIDKey)
			WithTraceContext(c.Request.Context(), base).Error("Panic recovered",
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "INTERNAL_ERROR",
					"message":    "Internal server error",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}

func campaignParam(c *gin.Context) string {
	if !strings.Contains(c.FullPath(), "/campaigns/:id") {
		return ""
	}
	return c.Param("id")
}
