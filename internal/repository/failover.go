package repository

import (
	"context"
	"sync/atomic"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCountCache serves advisory counts from the primary cache (redis)
// and degrades to the in-memory fallback when the primary errors, probing
// the primary again after a recovery interval.
type FailoverCountCache struct {
	primary   domain.CountCache
	fallback  domain.CountCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed probe
}

const recoveryInterval = time.Minute

func NewFailoverCountCache(primary, fallback domain.CountCache, logger *zerolog.Logger) *FailoverCountCache {
	return &FailoverCountCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverCountCache) shouldTryPrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, c.lastCheck.Load())) > recoveryInterval
}

func (c *FailoverCountCache) markDown(err error) {
	if !c.isDown.Load() {
		c.logger.Error().Err(err).Msg("primary count cache failed, falling back to memory")
	}
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverCountCache) GetCount(ctx context.Context, key models.SlotKey) (int, bool, error) {
	if c.shouldTryPrimary() {
		count, ok, err := c.primary.GetCount(ctx, key)
		if err == nil {
			c.isDown.Store(false)
			return count, ok, nil
		}
		c.markDown(err)
	}
	return c.fallback.GetCount(ctx, key)
}

func (c *FailoverCountCache) SetCount(ctx context.Context, key models.SlotKey, count int) error {
	if c.shouldTryPrimary() {
		if err := c.primary.SetCount(ctx, key, count); err != nil {
			c.markDown(err)
		} else {
			c.isDown.Store(false)
		}
	}
	return c.fallback.SetCount(ctx, key, count)
}

func (c *FailoverCountCache) Invalidate(ctx context.Context, key models.SlotKey) error {
	// Both layers are invalidated; a stale fallback entry would otherwise
	// survive a primary recovery.
	var primaryErr error
	if c.shouldTryPrimary() {
		if primaryErr = c.primary.Invalidate(ctx, key); primaryErr != nil {
			c.markDown(primaryErr)
		}
	}
	if err := c.fallback.Invalidate(ctx, key); err != nil {
		return err
	}
	return nil
}
