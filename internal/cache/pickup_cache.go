package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/binwise/backend/internal/metrics"
	"github.com/binwise/backend/internal/repository"
)

type PickupRepository interface {
	GetAllActive(ctx context.Context) ([]*repository.Pickup, error)
}

// PickupCache keeps non-terminal pickups in memory for read paths. Completed
// pickups are evicted on write-through.
type PickupCache struct {
	mu    sync.RWMutex
	cache map[string]*repository.Pickup
	repo  PickupRepository
	log   *zap.Logger
}

func NewPickupCache(repo PickupRepository, log *zap.Logger) *PickupCache {
	return &PickupCache{
		cache: make(map[string]*repository.Pickup),
		repo:  repo,
		log:   log,
	}
}

func (c *PickupCache) LoadInitialData(ctx context.Context) error {
	pickups, err := c.repo.GetAllActive(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pickup := range pickups {
		copied := *pickup
		c.cache[pickup.ID] = &copied
	}
	metrics.PickupCacheItems.Set(float64(len(c.cache)))
	c.log.Info("loaded active pickups into cache", zap.Int("count", len(c.cache)))
	return nil
}

func (c *PickupCache) Get(pickupID string) (*repository.Pickup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pickup, found := c.cache[pickupID]
	if !found {
		return nil, false
	}
	copied := *pickup
	return &copied, true
}

func (c *PickupCache) Set(pickup *repository.Pickup) {
	if !isActiveStatus(pickup.Status) {
		c.Delete(pickup.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *pickup
	c.cache[pickup.ID] = &copied
	metrics.PickupCacheItems.Set(float64(len(c.cache)))
}

func (c *PickupCache) Delete(pickupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[pickupID]; found {
		delete(c.cache, pickupID)
		metrics.PickupCacheItems.Set(float64(len(c.cache)))
	}
}

func isActiveStatus(status string) bool {
	return status == repository.StatusPending || status == repository.StatusAssigned
}
