package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/api"
	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/websocket"
	"github.com/stitts-dev/gridiron-sim/pkg/cache"
	"github.com/stitts-dev/gridiron-sim/pkg/config"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

const serviceName = "gridiron-sim"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService(serviceName)
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting simulation service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry, err := calibration.LoadDefaults()
	if err != nil {
		log.Fatalf("Failed to load calibration presets: %v", err)
	}
	if cfg.CalibrationFile != "" {
		if err := registry.MergeFile(cfg.CalibrationFile); err != nil {
			log.Fatalf("Failed to load calibration file: %v", err)
		}
	}
	if err := registry.SetDefault(cfg.CalibrationPreset); err != nil {
		log.Fatalf("Invalid CALIBRATION_PRESET: %v", err)
	}
	log.WithFields(logrus.Fields{
		"presets": registry.Names(),
		"default": registry.DefaultName(),
	}).Info("Calibration presets loaded")

	redisClient := connectRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}
	simulationCache := cache.NewSimulationCache(redisClient, cfg.CacheTTL, structuredLogger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsHub := websocket.NewHub(structuredLogger, cfg.CorsOrigins)
	go wsHub.Run(ctx)

	router := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Registry: registry,
		Cache:    simulationCache,
		Hub:      wsHub,
		Logger:   structuredLogger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Simulation service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down simulation service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Simulation service forced to shutdown: %v", err)
	}
	stop()

	log.Info("Simulation service exited")
}

// connectRedis returns nil when caching is disabled or redis is unreachable;
// the service runs without a cache in that case.
func connectRedis(cfg *config.Config, log *logrus.Entry) *redis.Client {
	if !cfg.CacheEnabled || cfg.RedisURL == "" {
		log.Info("Result cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Invalid REDIS_URL, running without cache")
		return nil
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		_ = client.Close()
		return nil
	}
	return client
}
