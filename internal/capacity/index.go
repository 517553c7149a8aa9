// Package capacity owns the per-(activity, date, time-slot) admission
// counters. Callers never read-modify-write occupancy themselves; all
// reservations go through TryReserve.
package capacity

import (
	"context"
	"sync"
	"time"

	"slotbook/internal/database"
	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

type Index struct {
	store  domain.Store
	cache  domain.CountCache
	logger *zerolog.Logger

	// One mutex per slot key. Operations on distinct triples proceed fully
	// in parallel; only same-triple admission is serialized.
	locks sync.Map
}

func NewIndex(store domain.Store, cache domain.CountCache, logger *zerolog.Logger) *Index {
	return &Index{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (i *Index) keyLock(key models.SlotKey) *sync.Mutex {
	if v, ok := i.locks.Load(key.String()); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := i.locks.LoadOrStore(key.String(), mu)
	return actual.(*sync.Mutex)
}

// CurrentCount returns the authoritative occupancy of the triple, derived
// from booking rows. No side effect.
func (i *Index) CurrentCount(ctx context.Context, activityID string, date time.Time, timeSlot string) (int, error) {
	return i.store.CountOccupying(ctx, activityID, date, timeSlot)
}

// TryReserve admits one reservation against the key if occupancy is below
// capacity, running commit (the store mutation) under the key's lock so the
// count cannot move between the check and the write. The store transaction
// inside commit re-checks the count as a second guard. Returns
// database.ErrSlotFull without side effects when the triple is full.
func (i *Index) TryReserve(ctx context.Context, key models.SlotKey, capacity int, commit func(ctx context.Context) error) error {
	mu := i.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	date, err := time.Parse(models.DateLayout, key.Date)
	if err != nil {
		return err
	}

	count, err := i.store.CountOccupying(ctx, key.ActivityID, date, key.TimeSlot)
	if err != nil {
		return err
	}
	if count >= capacity {
		return database.ErrSlotFull
	}

	if err := commit(ctx); err != nil {
		return err
	}

	i.invalidate(ctx, key)
	return nil
}

// Release drops any cached count for a vacated triple. The authoritative
// occupancy is derived from booking rows, so releasing a triple that was
// never counted is a no-op.
func (i *Index) Release(ctx context.Context, key models.SlotKey) {
	i.invalidate(ctx, key)
}

func (i *Index) invalidate(ctx context.Context, key models.SlotKey) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Invalidate(ctx, key); err != nil {
		i.logger.Warn().Err(err).Str("slot_key", key.String()).Msg("count cache invalidate failed")
	}
}
