package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

type PresetHandler struct {
	registry *calibration.Registry
}

func NewPresetHandler(registry *calibration.Registry) *PresetHandler {
	return &PresetHandler{registry: registry}
}

type PresetInfo struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description,omitempty"`
	Strategy    models.GameStrategy `json:"strategy"`
	Default     bool                `json:"default"`
}

// ListPresets returns every calibration preset, sorted by name
func (h *PresetHandler) ListPresets(c *gin.Context) {
	names := h.registry.Names()
	presets := make([]PresetInfo, 0, len(names))
	for _, name := range names {
		p, err := h.registry.Get(name)
		if err != nil {
			utils.SendErrorFrom(c, "Failed to load preset", err)
			return
		}
		presets = append(presets, PresetInfo{
			Name:        p.Name,
			Version:     p.Version,
			Description: p.Description,
			Strategy:    p.Strategy,
			Default:     name == h.registry.DefaultName(),
		})
	}

	utils.SendSuccess(c, gin.H{
		"default": h.registry.DefaultName(),
		"presets": presets,
	})
}

// GetPreset returns one preset with its full calibration
func (h *PresetHandler) GetPreset(c *gin.Context) {
	p, err := h.registry.Get(c.Param("name"))
	if err != nil {
		utils.SendNotFound(c, err.Error())
		return
	}
	utils.SendSuccess(c, p)
}
