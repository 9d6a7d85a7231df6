package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Context keys handlers set for the request log.
const (
	SimulationIDKey = "simulation_id"
	PresetKey       = "preset"
	CachedKey       = "cached"
	TrialsKey       = "num_simulations"
)

var loggedKeys = []string{SimulationIDKey, PresetKey, CachedKey, TrialsKey}

// RequestLogger logs one entry per request once the handler returns. Any of
// the simulation keys a handler stored on the context are added as fields.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"service":    "gridiron-sim",
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(startTime).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})

		for _, key := range loggedKeys {
			if v, ok := c.Get(key); ok {
				entry = entry.WithField(key, v)
			}
		}
		if c.Request.URL.RawQuery != "" {
			entry = entry.WithField("query", c.Request.URL.RawQuery)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Simulation API request failed")
		case status >= 400:
			entry.Warn("Simulation API request rejected")
		default:
			entry.Info("Simulation API request completed")
		}
	}
}
