package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slok/gsx/internal/log"
)

// accessLog logs every request at debug level, failures at warning level.
func accessLog(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t0 := time.Now()
		c.Next()

		l := logger.WithValues(log.Kv{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(t0).String(),
		})
		if c.Writer.Status() >= 500 {
			l.Warningf("request failed")
			return
		}
		l.Debugf("request served")
	}
}
