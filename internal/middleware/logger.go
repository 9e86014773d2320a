package middleware

import (
	"time"

	"antigravity2api-go/internal/logging"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs completed HTTP requests with latency and routing fields.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		modelVal, _ := c.Get("model")
		mappedVal, _ := c.Get("mapped_model")
		extras := log.Fields{
			"status":     status,
			"latency_ms": logging.DurationMS(latency),
			"method":     method,
			"path":       path,
			"model":      modelVal,
			"mapped":     mappedVal,
		}
		logging.WithReq(c, extras).Info("http_request")
	}
}
