package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arsip-biak-api/internal/service"
)

// Metrics records latency and status per route. The route template
// (c.FullPath) keeps label cardinality bounded; unmatched requests fall
// back to the raw path so 404 traffic still shows up.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
