package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis
	RedisURL     string        `mapstructure:"REDIS_URL"`
	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Simulation
	MaxSimulations     int           `mapstructure:"MAX_SIMULATIONS"`
	DefaultSimulations int           `mapstructure:"DEFAULT_SIMULATIONS"`
	SimulationWorkers  int           `mapstructure:"SIMULATION_WORKERS"`
	SimulationTimeout  time.Duration `mapstructure:"SIMULATION_TIMEOUT"`

	// Calibration
	CalibrationPreset string `mapstructure:"CALIBRATION_PRESET"`
	CalibrationFile   string `mapstructure:"CALIBRATION_FILE"`

	// Rate limiting
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_TTL", "1h")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("MAX_SIMULATIONS", 100000)
	viper.SetDefault("DEFAULT_SIMULATIONS", 10000)
	viper.SetDefault("SIMULATION_WORKERS", 0) // 0 = one per CPU
	viper.SetDefault("SIMULATION_TIMEOUT", "30s")
	viper.SetDefault("CALIBRATION_PRESET", "w13")
	viper.SetDefault("CALIBRATION_FILE", "")
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = splitList(corsStr)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.MaxSimulations <= 0 {
		return fmt.Errorf("MAX_SIMULATIONS must be positive, got %d", c.MaxSimulations)
	}
	if c.DefaultSimulations <= 0 || c.DefaultSimulations > c.MaxSimulations {
		return fmt.Errorf("DEFAULT_SIMULATIONS must be in [1, %d], got %d", c.MaxSimulations, c.DefaultSimulations)
	}
	if c.SimulationWorkers < 0 {
		return fmt.Errorf("SIMULATION_WORKERS cannot be negative, got %d", c.SimulationWorkers)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
