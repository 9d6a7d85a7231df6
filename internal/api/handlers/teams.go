package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/ingest"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

const maxUploadBytes = 2 << 20

// TeamHandler handles team stat ingestion endpoints
type TeamHandler struct {
	registry *calibration.Registry
	logger   *logrus.Logger
}

func NewTeamHandler(registry *calibration.Registry, logger *logrus.Logger) *TeamHandler {
	return &TeamHandler{
		registry: registry,
		logger:   logger,
	}
}

// ParseTeamsResponse lists the normalized profiles of an uploaded table
type ParseTeamsResponse struct {
	Preset string               `json:"preset"`
	Teams  []models.TeamProfile `json:"teams"`
}

// ParseTeams normalizes a delimited stat table posted as the request body.
// The optional ?preset= query selects the league baseline.
func (h *TeamHandler) ParseTeams(c *gin.Context) {
	preset, err := h.registry.Get(c.Query("preset"))
	if err != nil {
		utils.SendErrorFrom(c, "Unknown calibration preset", err)
		return
	}
	c.Set(middleware.PresetKey, preset.Name)

	records, err := ingest.ParseTeamStats(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		utils.SendErrorFrom(c, "Failed to parse team stats", fmt.Errorf("%w: %w", utils.ErrInvalidInput, err))
		return
	}
	if _, err := ingest.IndexByTeam(records); err != nil {
		utils.SendErrorFrom(c, "Invalid team stats", err)
		return
	}

	normalizer := stats.NewNormalizer(preset.Baseline, h.logger)
	teams := make([]models.TeamProfile, 0, len(records))
	for i, rec := range records {
		profile, err := normalizer.Build(rec)
		if err != nil {
			utils.SendErrorFrom(c, fmt.Sprintf("Invalid team record %d", i+1), err)
			return
		}
		teams = append(teams, profile)
	}

	h.logger.WithFields(logrus.Fields{
		"teams":  len(teams),
		"preset": preset.Name,
	}).Info("Parsed team stats")

	utils.SendSuccess(c, ParseTeamsResponse{Preset: preset.Name, Teams: teams})
}
