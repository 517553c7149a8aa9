package capacity

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slotbook/internal/database"
	"slotbook/internal/models"
	"slotbook/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, *database.DB) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "capacity.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cache := repository.NewMemoryCountCache(time.Minute)
	return NewIndex(db, cache, &logger), db
}

func insertBooking(t *testing.T, db *database.DB, activity string, date time.Time, slot string, capacity int) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ID:         uuid.NewString(),
		OwnerID:    "member-1",
		ActivityID: activity,
		Date:       date,
		TimeSlot:   slot,
		Status:     models.StatusConfirmed,
	}
	require.NoError(t, db.CreateBooking(context.Background(), booking, capacity))
	return booking
}

func TestTryReserve_AdmitsBelowCapacity(t *testing.T) {
	index, db := newTestIndex(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)
	key := models.NewSlotKey("tennis-court-1", date, "10:00")

	committed := false
	err := index.TryReserve(ctx, key, 1, func(ctx context.Context) error {
		insertBooking(t, db, "tennis-court-1", date, "10:00", 1)
		committed = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, committed)

	count, err := index.CurrentCount(ctx, "tennis-court-1", date, "10:00")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTryReserve_RejectsWhenFull(t *testing.T) {
	index, db := newTestIndex(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)
	insertBooking(t, db, "tennis-court-1", date, "10:00", 1)

	key := models.NewSlotKey("tennis-court-1", date, "10:00")
	err := index.TryReserve(ctx, key, 1, func(ctx context.Context) error {
		t.Fatal("commit must not run when the slot is full")
		return nil
	})
	assert.ErrorIs(t, err, database.ErrSlotFull)
}

func TestTryReserve_NoDoubleAdmission(t *testing.T) {
	index, db := newTestIndex(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)
	key := models.NewSlotKey("tennis-court-1", date, "10:00")

	const capacity = 2
	const racers = capacity + 3

	var wg sync.WaitGroup
	wg.Add(racers)
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			results <- index.TryReserve(ctx, key, capacity, func(ctx context.Context) error {
				booking := &models.Booking{
					ID:         uuid.NewString(),
					OwnerID:    "member",
					ActivityID: "tennis-court-1",
					Date:       date,
					TimeSlot:   "10:00",
					Status:     models.StatusConfirmed,
				}
				return db.CreateBooking(ctx, booking, capacity)
			})
		}()
	}

	wg.Wait()
	close(results)

	successes, slotFull := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == database.ErrSlotFull:
			slotFull++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, capacity, successes)
	assert.Equal(t, racers-capacity, slotFull)

	count, err := index.CurrentCount(ctx, "tennis-court-1", date, "10:00")
	assert.NoError(t, err)
	assert.Equal(t, capacity, count)
}

func TestRelease_Idempotent(t *testing.T) {
	index, db := newTestIndex(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)
	key := models.NewSlotKey("tennis-court-1", date, "10:00")

	booking := insertBooking(t, db, "tennis-court-1", date, "10:00", 1)
	require.NoError(t, db.UpdateBookingStatus(ctx, booking.ID, 1, models.StatusCanceled))

	// Releasing twice must not disturb the derived count.
	index.Release(ctx, key)
	index.Release(ctx, key)

	count, err := index.CurrentCount(ctx, "tennis-court-1", date, "10:00")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTryReserve_DistinctTriplesParallel(t *testing.T) {
	index, db := newTestIndex(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)

	slots := []string{"08:00", "09:00", "10:00", "11:00"}
	var wg sync.WaitGroup
	wg.Add(len(slots))
	results := make(chan error, len(slots))

	for _, slot := range slots {
		go func(slot string) {
			defer wg.Done()
			key := models.NewSlotKey("pool-lanes", date, slot)
			results <- index.TryReserve(ctx, key, 1, func(ctx context.Context) error {
				booking := &models.Booking{
					ID:         uuid.NewString(),
					OwnerID:    "member",
					ActivityID: "pool-lanes",
					Date:       date,
					TimeSlot:   slot,
					Status:     models.StatusConfirmed,
				}
				return db.CreateBooking(ctx, booking, 1)
			})
		}(slot)
	}

	wg.Wait()
	close(results)
	for err := range results {
		assert.NoError(t, err)
	}
}
