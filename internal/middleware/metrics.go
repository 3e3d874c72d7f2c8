package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/metrics"
)

// RequestMetrics counts requests per matched route and status class.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(c.Writer.Status()/100) + "xx"
		metrics.Global().HTTPRequests.WithLabelValues(route, class).Inc()
	}
}
