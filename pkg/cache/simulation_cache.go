package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

const (
	resultKeyPrefix  = "simulation:"
	requestKeyPrefix = "simulation:request:"

	breakerTripAfter = 3
	breakerCooldown  = 30 * time.Second
)

// CachedSimulation is a finished run as stored in redis
type CachedSimulation struct {
	ID         string                   `json:"id"`
	Result     *models.SimulationResult `json:"result"`
	DurationMS int64                    `json:"duration_ms"`
	CreatedAt  time.Time                `json:"created_at"`
}

// SimulationCache stores simulation results by id and maps deterministic
// request fingerprints to those ids. A nil client disables it; every read
// then misses and every write is a no-op. Redis calls go through a circuit
// breaker that opens after consecutive transport failures.
type SimulationCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewSimulationCache creates a new simulation cache
func NewSimulationCache(client *redis.Client, ttl time.Duration, log *logrus.Logger) *SimulationCache {
	log = logger.OrDefault(log)
	return &SimulationCache{
		client: client,
		ttl:    ttl,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "simulation-cache",
			Timeout: breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTripAfter
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, redis.Nil)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{
					"breaker":    name,
					"from_state": from.String(),
					"to_state":   to.String(),
				}).Warn("Cache circuit breaker state changed")
			},
		}),
		logger: log,
	}
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open")
func (c *SimulationCache) BreakerState() string {
	return c.breaker.State().String()
}

func (c *SimulationCache) get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *SimulationCache) set(ctx context.Context, key string, value interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, value, c.ttl).Err()
	})
	return err
}

func (c *SimulationCache) Enabled() bool {
	return c != nil && c.client != nil
}

// SetResult stores a simulation under simulation:<id>
func (c *SimulationCache) SetResult(ctx context.Context, entry *CachedSimulation) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation result: %w", err)
	}

	fullKey := resultKeyPrefix + entry.ID
	if err := c.set(ctx, fullKey, data); err != nil {
		return fmt.Errorf("failed to set simulation result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":   fullKey,
		"expiration":  c.ttl,
		"simulations": entry.Result.NumSimulations,
	}).Debug("Cached simulation result")

	return nil
}

// GetResult loads a simulation by id. A miss wraps utils.ErrNotFound.
func (c *SimulationCache) GetResult(ctx context.Context, id string) (*CachedSimulation, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("simulation %s: %w", id, utils.ErrNotFound)
	}

	fullKey := resultKeyPrefix + id
	data, err := c.get(ctx, fullKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("simulation %s: %w", id, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get simulation result from cache: %w", err)
	}

	var entry CachedSimulation
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulation result: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Retrieved simulation result from cache")
	return &entry, nil
}

// SetRequestAlias points a request fingerprint at a stored simulation id
func (c *SimulationCache) SetRequestAlias(ctx context.Context, requestKey, id string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.set(ctx, requestKeyPrefix+requestKey, id); err != nil {
		return fmt.Errorf("failed to set request alias in cache: %w", err)
	}
	return nil
}

// LookupRequest resolves a request fingerprint to its cached simulation
func (c *SimulationCache) LookupRequest(ctx context.Context, requestKey string) (*CachedSimulation, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("request %s: %w", requestKey, utils.ErrNotFound)
	}

	id, err := c.get(ctx, requestKeyPrefix+requestKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("request %s: %w", requestKey, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up request alias: %w", err)
	}
	return c.GetResult(ctx, string(id))
}

func (c *SimulationCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}

// RequestKey fingerprints a request as the hex SHA-256 of its JSON encoding.
// encoding/json sorts map keys, so equal requests hash equally.
func RequestKey(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
