package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// progressSteps is how many progress messages a run sends at most.
const progressSteps = 20

// SimulationHandler handles simulation endpoints
type SimulationHandler struct {
	registry *calibration.Registry
	cache    *cache.SimulationCache
	wsHub    *websocket.Hub
	config   *config.Config
	logger   *logrus.Logger
}

func NewSimulationHandler(
	registry *calibration.Registry,
	cache *cache.SimulationCache,
	wsHub *websocket.Hub,
	config *config.Config,
	logger *logrus.Logger,
) *SimulationHandler {
	return &SimulationHandler{
		registry: registry,
		cache:    cache,
		wsHub:    wsHub,
		config:   config,
		logger:   logger,
	}
}

// SimulateRequest asks for one game. Config is decoded over the server
// defaults so omitted fields keep neutral values.
type SimulateRequest struct {
	Home     models.RawRecord `json:"home" binding:"required"`
	Away     models.RawRecord `json:"away" binding:"required"`
	Config   json.RawMessage  `json:"config,omitempty"`
	Preset   string           `json:"preset,omitempty"`
	ClientID string           `json:"client_id,omitempty"`
}

type SimulateResponse struct {
	ID         string                   `json:"id"`
	DurationMS int64                    `json:"duration_ms"`
	Cached     bool                     `json:"cached"`
	Result     *models.SimulationResult `json:"result"`
}

// fingerprint is what a deterministic run depends on
type fingerprint struct {
	Preset  string                  `json:"preset"`
	Version string                  `json:"version"`
	Home    models.TeamProfile      `json:"home"`
	Away    models.TeamProfile      `json:"away"`
	Config  models.SimulationConfig `json:"config"`
}

// RunSimulation handles POST /api/v1/simulate
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	preset, err := h.registry.Get(req.Preset)
	if err != nil {
		utils.SendErrorFrom(c, "Unknown calibration preset", err)
		return
	}
	c.Set(middleware.PresetKey, preset.Name)

	cfg, err := h.decodeConfig(req.Config)
	if err != nil {
		utils.SendValidationError(c, "Invalid simulation config", err.Error())
		return
	}

	normalizer := stats.NewNormalizer(preset.Baseline, h.logger)
	home, err := normalizer.Build(req.Home)
	if err != nil {
		utils.SendErrorFrom(c, "Invalid home team record", err)
		return
	}
	away, err := normalizer.Build(req.Away)
	if err != nil {
		utils.SendErrorFrom(c, "Invalid away team record", err)
		return
	}

	ctx := c.Request.Context()

	// Only seeded runs are reproducible, so only those are looked up.
	var requestKey string
	if cfg.Seed != 0 && h.cache.Enabled() {
		requestKey, err = cache.RequestKey(fingerprint{
			Preset:  preset.Name,
			Version: preset.Version,
			Home:    home,
			Away:    away,
			Config:  cfg,
		})
		if err != nil {
			h.logger.WithError(err).Warn("Failed to fingerprint simulation request")
		} else if cached, err := h.cache.LookupRequest(ctx, requestKey); err == nil {
			c.Set(middleware.SimulationIDKey, cached.ID)
			c.Set(middleware.CachedKey, true)
			c.Set(middleware.TrialsKey, cached.Result.NumSimulations)
			utils.SendSuccess(c, SimulateResponse{
				ID:         cached.ID,
				DurationMS: cached.DurationMS,
				Cached:     true,
				Result:     cached.Result,
			})
			return
		} else if !errors.Is(err, utils.ErrNotFound) {
			h.logger.WithError(err).Warn("Simulation cache lookup failed")
		}
	}

	engine, err := simulator.NewEngine(preset,
		simulator.WithLogger(h.logger),
		simulator.WithMaxSimulations(h.config.MaxSimulations),
		simulator.WithWorkers(h.config.SimulationWorkers),
	)
	if err != nil {
		utils.SendErrorFrom(c, "Invalid calibration preset", err)
		return
	}

	simulationID := uuid.NewString()
	c.Set(middleware.SimulationIDKey, simulationID)
	c.Set(middleware.CachedKey, false)
	log := logger.WithSimulationContext(simulationID, home.Team, away.Team)

	if h.config.SimulationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.SimulationTimeout)
		defer cancel()
	}

	startTime := time.Now()
	result, err := engine.SimulateWithProgress(ctx, home, away, cfg, h.progressReporter(req.ClientID, simulationID))
	duration := time.Since(startTime)
	if err != nil {
		log.WithError(err).Error("Simulation failed")
		if h.wsHub != nil {
			h.wsHub.SendFailed(req.ClientID, simulationID, err)
		}
		utils.SendErrorFrom(c, "Simulation failed", err)
		return
	}

	c.Set(middleware.TrialsKey, result.NumSimulations)

	entry := &cache.CachedSimulation{
		ID:         simulationID,
		Result:     result,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err := h.cache.SetResult(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to cache simulation result")
	} else if requestKey != "" {
		if err := h.cache.SetRequestAlias(ctx, requestKey, simulationID); err != nil {
			log.WithError(err).Warn("Failed to cache simulation request alias")
		}
	}

	if h.wsHub != nil {
		h.wsHub.SendComplete(req.ClientID, simulationID, duration)
	}

	log.WithFields(logrus.Fields{
		"simulations":    result.NumSimulations,
		"execution_time": duration,
		"client_id":      req.ClientID,
	}).Info("Simulation completed successfully")

	utils.SendSuccess(c, SimulateResponse{
		ID:         simulationID,
		DurationMS: duration.Milliseconds(),
		Result:     result,
	})
}

// GetSimulation handles GET /api/v1/simulate/:id
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.SendValidationError(c, "Invalid simulation ID", err.Error())
		return
	}

	c.Set(middleware.SimulationIDKey, id)
	cached, err := h.cache.GetResult(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			utils.SendNotFound(c, "Simulation not found")
			return
		}
		logger.WithSimulationID(id).WithError(err).Error("Failed to load simulation")
		utils.SendInternalError(c, "Failed to load simulation")
		return
	}

	utils.SendSuccess(c, SimulateResponse{
		ID:         cached.ID,
		DurationMS: cached.DurationMS,
		Cached:     true,
		Result:     cached.Result,
	})
}

func (h *SimulationHandler) decodeConfig(raw json.RawMessage) (models.SimulationConfig, error) {
	cfg := models.DefaultSimulationConfig()
	cfg.NumSimulations = h.config.DefaultSimulations
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", utils.ErrInvalidInput, err)
	}
	return cfg, nil
}

// progressReporter forwards engine progress to the websocket hub, at most
// progressSteps times per run.
func (h *SimulationHandler) progressReporter(clientID, simulationID string) simulator.ProgressFunc {
	if h.wsHub == nil || clientID == "" || !h.wsHub.IsConnected(clientID) {
		return nil
	}

	var lastStep int64 = -1
	return func(completed, total int) {
		if total <= 0 {
			return
		}
		step := int64(completed * progressSteps / total)
		for {
			prev := atomic.LoadInt64(&lastStep)
			if step <= prev {
				return
			}
			if atomic.CompareAndSwapInt64(&lastStep, prev, step) {
				break
			}
		}
		h.wsHub.SendProgress(clientID, simulationID, completed, total)
	}
}
