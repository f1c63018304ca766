package gateway

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/logger"
	"voicecoach-gateway/internal/common/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	maxRequestIDLen = 128
)

// requestID propagates a caller-supplied X-Request-ID or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func recovery(errs *apperrors.ErrorHandler) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err := apperrors.NewInternalError(fmt.Errorf("panic: %v", recovered))
		status, body := errs.Handle(routeOf(c), c.GetString(requestIDKey), err)
		c.AbortWithStatusJSON(status, body)
	})
}

func accessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"route":     routeOf(c),
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"requestId": c.GetString(requestIDKey),
			"bytesOut":  c.Writer.Size(),
		}
		if origin := c.GetHeader("Origin"); origin != "" {
			fields["origin"] = origin
		}
		log.Info("request completed", fields)
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveRequest(routeOf(c), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// routeOf returns the matched route template so metric labels stay bounded.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
