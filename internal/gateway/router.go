package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voicecoach-gateway/internal/common/config"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/pkg/registry"
)

// NewRouter wires middleware and routes.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Registry == nil {
		deps.Registry = registry.Default()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	h := newHandlers(deps)

	// accessLog and requestMetrics sit outside recovery so panics are
	// logged and counted with their 500.
	engine.Use(
		requestID(),
		accessLog(deps.Logger),
		requestMetrics(),
		recovery(h.errors),
		corsMiddleware(deps.Config.CORS),
	)

	engine.GET("/health", h.health)
	engine.POST("/generate_script", h.generateScript)
	engine.POST("/analyze", h.analyze)
	if deps.Config.Observability.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apperrors.PublicError{
			Code:      "NOT_FOUND",
			Message:   "Route not found",
			RequestID: c.GetString(requestIDKey),
		})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, apperrors.PublicError{
			Code:      "METHOD_NOT_ALLOWED",
			Message:   "Method not allowed",
			RequestID: c.GetString(requestIDKey),
		})
	})

	return engine
}

// corsMiddleware answers allowed origins through gin-contrib/cors. Requests
// from other origins are still served, without any CORS headers.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	maxAge := time.Duration(cfg.MaxAge) * time.Second
	if maxAge <= 0 {
		maxAge = time.Hour
	}

	handler := cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           maxAge,
	})

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !allowed[origin] {
			c.Next()
			return
		}
		handler(c)
	}
}
