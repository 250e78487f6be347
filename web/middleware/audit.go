package middleware

import (
	"time"

	"github.com/dicoevent/dicoevent/logger"

	"github.com/gin-gonic/gin"
)

// AccessLog logs every request with its actor, status and latency once the
// handler chain has finished.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		user := "anonymous"
		if actor := GetActor(c); actor != nil {
			user = actor.Username
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		source := c.Writer.Header().Get("X-Data-Source")
		switch {
		case status >= 500:
			logger.Errorf("%s %s %d %s user=%s ip=%s", c.Request.Method, c.Request.URL.Path, status, latency, user, c.ClientIP())
		case status >= 400:
			logger.Warningf("%s %s %d %s user=%s ip=%s", c.Request.Method, c.Request.URL.Path, status, latency, user, c.ClientIP())
		default:
			logger.Debugf("%s %s %d %s user=%s source=%s", c.Request.Method, c.Request.URL.Path, status, latency, user, source)
		}
	}
}
