package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/pkg/metrics"
)

// Metrics 请求耗时指标，按路由模板聚合
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
