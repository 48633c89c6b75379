package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solana-token-risk/internal/observability"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the engine with /health, /metrics and the /v1 API.
func NewRouter(h *Handler, checks map[string]HealthCheck) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())

	r.GET("/health", healthHandler(checks))
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	h.RegisterRoutes(r.Group("/v1"))
	return r
}

// requestMetrics counts requests by route template and status.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		healthy := true
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				healthy = false
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}
