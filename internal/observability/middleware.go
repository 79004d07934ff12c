package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys handlers set so the request log carries the task call they
// served.
const (
	ObjectIDKey = "object_id"
	MethodKey   = "object_method"
)

// RequestLogger logs one event per bridge request. When the handler tagged
// the request with the object it touched, the event carries that too.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size())
		if id, ok := c.Get(ObjectIDKey); ok {
			event.Interface(ObjectIDKey, id)
		}
		if m, ok := c.Get(MethodKey); ok {
			event.Interface(MethodKey, m)
		}
		event.Msg("bridge_request")
	}
}

func RequestMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		RecordHTTPRequest(service, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
