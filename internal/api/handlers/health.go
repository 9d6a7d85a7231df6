package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
)

const pingTimeout = 2 * time.Second

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	registry *calibration.Registry
	cache    *cache.SimulationCache
	wsHub    *websocket.Hub
	logger   *logrus.Logger
}

func NewHealthHandler(registry *calibration.Registry, cache *cache.SimulationCache, wsHub *websocket.Hub, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		cache:    cache,
		wsHub:    wsHub,
		logger:   logger,
	}
}

// GetHealth reports liveness. Redis is optional, so a failing cache only
// degrades the status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   "gridiron-sim",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	status := h.checkCache(c.Request.Context())
	response.Checks["redis"] = status
	if status != "ok" && status != "not_configured" {
		response.Status = "degraded"
	}

	if h.wsHub != nil {
		response.Checks["websocket"] = "ok"
	}

	c.JSON(http.StatusOK, response)
}

// GetReady reports whether the service can run simulations
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   "gridiron-sim",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.registry == nil || len(h.registry.Names()) == 0 {
		response.Status = "not_ready"
		response.Checks["calibration"] = "no presets loaded"
	} else {
		response.Checks["calibration"] = h.registry.DefaultName()
	}
	response.Checks["redis"] = h.checkCache(c.Request.Context())

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

func (h *HealthHandler) checkCache(ctx context.Context) string {
	if !h.cache.Enabled() {
		return "not_configured"
	}
	if state := h.cache.BreakerState(); state == "open" {
		return "failed: circuit " + state
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		return "failed: " + err.Error()
	}
	return "ok"
}
