package mw

import (
	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/metrics"
)

// Metrics counts every request by method, route template and status.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.Request(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
