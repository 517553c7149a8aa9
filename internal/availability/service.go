// Package availability answers the advisory "may this slot be offered"
// question used by calendars and time pickers. It reads through a short-TTL
// count cache; the authoritative admission decision is always taken by the
// capacity index at reservation time, which closes the race window between a
// user viewing availability and submitting a request.
package availability

import (
	"context"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

type Service struct {
	index   domain.CapacityIndex
	catalog domain.Catalog
	cache   domain.CountCache
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewService(index domain.CapacityIndex, catalog domain.Catalog, cache domain.CountCache, logger *zerolog.Logger) *Service {
	return &Service{
		index:   index,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) IsSlotAvailable(ctx context.Context, activityID string, date time.Time, timeSlot string) (bool, error) {
	activity, err := s.catalog.GetActivity(activityID)
	if err != nil {
		return false, err
	}
	if !activity.IsActive || !activity.HasSlot(timeSlot) {
		return false, nil
	}
	if s.isPastDate(date) {
		return false, nil
	}

	count, err := s.occupancy(ctx, activityID, date, timeSlot)
	if err != nil {
		return false, err
	}
	return count < activity.CapacityPerSlot, nil
}

func (s *Service) IsDateBookable(ctx context.Context, activityID string, date time.Time) (bool, error) {
	activity, err := s.catalog.GetActivity(activityID)
	if err != nil {
		return false, err
	}
	if !activity.IsActive || s.isPastDate(date) {
		return false, nil
	}

	for _, slot := range activity.AvailableSlots {
		count, err := s.occupancy(ctx, activityID, date, slot)
		if err != nil {
			return false, err
		}
		if count < activity.CapacityPerSlot {
			return true, nil
		}
	}
	return false, nil
}

// DaySchedule reports per-slot occupancy for one activity day, in the
// activity's slot order.
func (s *Service) DaySchedule(ctx context.Context, activityID string, date time.Time) ([]models.SlotAvailability, error) {
	activity, err := s.catalog.GetActivity(activityID)
	if err != nil {
		return nil, err
	}

	past := s.isPastDate(date)
	schedule := make([]models.SlotAvailability, 0, len(activity.AvailableSlots))
	for _, slot := range activity.AvailableSlots {
		count, err := s.occupancy(ctx, activityID, date, slot)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, models.SlotAvailability{
			TimeSlot:  slot,
			Booked:    count,
			Capacity:  activity.CapacityPerSlot,
			Available: activity.IsActive && !past && count < activity.CapacityPerSlot,
		})
	}
	return schedule, nil
}

func (s *Service) occupancy(ctx context.Context, activityID string, date time.Time, timeSlot string) (int, error) {
	key := models.NewSlotKey(activityID, date, timeSlot)

	if s.cache != nil {
		if count, ok, err := s.cache.GetCount(ctx, key); err == nil && ok {
			return count, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Str("slot_key", key.String()).Msg("count cache read failed")
		}
	}

	count, err := s.index.CurrentCount(ctx, activityID, date, timeSlot)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetCount(ctx, key, count); err != nil {
			s.logger.Warn().Err(err).Str("slot_key", key.String()).Msg("count cache write failed")
		}
	}
	return count, nil
}

func (s *Service) isPastDate(date time.Time) bool {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	return day.Before(today)
}
