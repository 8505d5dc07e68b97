package middleware

import (
	"strconv"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics замеряет длительность запросов по шаблону маршрута
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
