package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DurationMS renders a duration as fractional milliseconds for log fields.
func DurationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// WithReq returns an entry carrying the request id plus any extra fields.
func WithReq(c *gin.Context, extras log.Fields) *log.Entry {
	fields := log.Fields{}
	if rid, ok := c.Get("request_id"); ok {
		fields["request_id"] = rid
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}
