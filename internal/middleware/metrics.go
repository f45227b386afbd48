package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krayon-edu/krs-planner-api/internal/service"
)

// routeLabel returns the route template ("/api/v1/plans/:id") rather
// than the raw URL, so per-plan paths share one metric series. Requests
// that matched no route collapse into a single bucket to keep the label
// cardinality bounded.
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}

// Metrics returns middleware that captures request metrics using the provided service.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}
