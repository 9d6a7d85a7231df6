package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api/handlers"
	"github.com/stitts-dev/gridiron-sim/internal/api/middleware"
	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
)

// Dependencies are the long-lived services the routes are built from
type Dependencies struct {
	Config   *config.Config
	Registry *calibration.Registry
	Cache    *cache.SimulationCache
	Hub      *websocket.Hub
	Logger   *logrus.Logger
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	health := handlers.NewHealthHandler(deps.Registry, deps.Cache, deps.Hub, deps.Logger)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)

	if deps.Hub != nil {
		router.GET("/ws/simulation-progress/:client_id", deps.Hub.HandleWebSocket)
	}

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	teamHandler := handlers.NewTeamHandler(deps.Registry, deps.Logger)
	presetHandler := handlers.NewPresetHandler(deps.Registry)
	simulationHandler := handlers.NewSimulationHandler(deps.Registry, deps.Cache, deps.Hub, deps.Config, deps.Logger)

	limiter := middleware.NewRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst)

	group.GET("/presets", presetHandler.ListPresets)
	group.GET("/presets/:name", presetHandler.GetPreset)

	group.POST("/teams/parse", teamHandler.ParseTeams)

	simulate := group.Group("/simulate")
	{
		simulate.POST("", limiter.Middleware(), simulationHandler.RunSimulation)
		simulate.GET("/:id", simulationHandler.GetSimulation)
	}
}
