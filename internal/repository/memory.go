package repository

import (
	"context"
	"sync"
	"time"

	"slotbook/internal/models"
)

type MemoryCountCache struct {
	counts sync.Map
	ttl    time.Duration
}

type countEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryCountCache(ttl time.Duration) *MemoryCountCache {
	return &MemoryCountCache{ttl: ttl}
}

func (c *MemoryCountCache) GetCount(ctx context.Context, key models.SlotKey) (int, bool, error) {
	val, ok := c.counts.Load(key.String())
	if !ok {
		return 0, false, nil
	}
	entry := val.(countEntry)
	if time.Now().After(entry.expiresAt) {
		c.counts.Delete(key.String())
		return 0, false, nil
	}
	return entry.count, true, nil
}

func (c *MemoryCountCache) SetCount(ctx context.Context, key models.SlotKey, count int) error {
	c.counts.Store(key.String(), countEntry{count: count, expiresAt: time.Now().Add(c.ttl)})
	return nil
}

func (c *MemoryCountCache) Invalidate(ctx context.Context, key models.SlotKey) error {
	c.counts.Delete(key.String())
	return nil
}
