// README: Request logging middleware.
package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver receives one call per finished request.
type RequestObserver interface {
	HTTPObserve(method, route string, status int)
}

func Logging(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		log.Printf("http method=%s path=%s status=%d latency=%s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
		if obs != nil {
			obs.HTTPObserve(c.Request.Method, route, status)
		}
	}
}
