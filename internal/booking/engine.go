// Package booking implements the lifecycle engine: the state machine and
// authorization rules governing creation, cancellation and rescheduling of a
// single booking.
package booking

import (
	"context"
	"errors"
	"time"

	"slotbook/internal/database"
	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Engine struct {
	store          domain.Store
	index          domain.CapacityIndex
	catalog        domain.Catalog
	eventBus       domain.EventPublisher
	maxBookingDays int
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewEngine(store domain.Store, index domain.CapacityIndex, catalog domain.Catalog, eventBus domain.EventPublisher, maxBookingDays int, logger *zerolog.Logger) *Engine {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &Engine{
		store:          store,
		index:          index,
		catalog:        catalog,
		eventBus:       eventBus,
		maxBookingDays: maxBookingDays,
		logger:         logger,
		now:            time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Create admits a new booking for the actor. Only members create bookings;
// staff oversee them. Admission is serialized per slot key by the capacity
// index, so concurrent requests for the last open unit cannot both succeed.
func (e *Engine) Create(ctx context.Context, actor models.Actor, activityID string, date time.Time, timeSlot, notes string) (*models.Booking, error) {
	if actor.Role != models.RoleMember {
		return nil, e.reject("create", ErrForbidden)
	}

	activity, err := e.catalog.GetActivity(activityID)
	if err != nil {
		return nil, e.reject("create", err)
	}
	if !activity.IsActive {
		return nil, e.reject("create", ErrActivityInactive)
	}
	if !activity.HasSlot(timeSlot) {
		return nil, e.reject("create", ErrUnknownSlot)
	}
	if err := e.validateDate(date); err != nil {
		return nil, e.reject("create", err)
	}

	booking := &models.Booking{
		ID:         uuid.NewString(),
		OwnerID:    actor.ID,
		ActivityID: activityID,
		Date:       date,
		TimeSlot:   timeSlot,
		Status:     models.StatusConfirmed,
		Notes:      notes,
	}

	key := models.NewSlotKey(activityID, date, timeSlot)
	err = e.index.TryReserve(ctx, key, activity.CapacityPerSlot, func(ctx context.Context) error {
		return e.store.CreateBooking(ctx, booking, activity.CapacityPerSlot)
	})
	if err != nil {
		if errors.Is(err, database.ErrSlotFull) {
			metrics.IncSlotFull(activityID)
		}
		return nil, e.reject("create", err)
	}

	metrics.IncBookingOp("create", "success")
	e.publishEvent(events.EventBookingCreated, booking, actor)
	e.logger.Info().
		Str("booking_id", booking.ID).
		Str("activity_id", activityID).
		Str("slot_key", key.String()).
		Msg("booking created")
	return booking, nil
}

// Cancel transitions a confirmed (or rescheduled) booking to canceled and
// frees its slot. Past slots are immutable history for every role.
func (e *Engine) Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, e.reject("cancel", err)
	}
	if !e.canModify(actor, booking) {
		return nil, e.reject("cancel", ErrForbidden)
	}
	if booking.Status == models.StatusCanceled {
		return nil, e.reject("cancel", ErrAlreadyCanceled)
	}
	if booking.SlotStart().Before(e.now()) {
		return nil, e.reject("cancel", ErrPastBooking)
	}

	if err := e.store.UpdateBookingStatus(ctx, bookingID, booking.Version, models.StatusCanceled); err != nil {
		return nil, e.reject("cancel", err)
	}
	e.index.Release(ctx, models.NewSlotKey(booking.ActivityID, booking.Date, booking.TimeSlot))

	updated, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		// The cancel is committed; a failed re-read must not surface as a
		// failed operation.
		e.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("reread after cancel failed")
		local := *booking
		local.Status = models.StatusCanceled
		local.Version++
		updated = &local
	}

	metrics.IncBookingOp("cancel", "success")
	e.publishEvent(events.EventBookingCanceled, updated, actor)
	e.logger.Info().Str("booking_id", bookingID).Msg("booking canceled")
	return updated, nil
}

// Reschedule moves a booking to a new date/slot of the same activity. The
// new triple is reserved before the old one is released; the whole move is
// one store transaction, so a full target slot leaves the original
// reservation untouched.
func (e *Engine) Reschedule(ctx context.Context, actor models.Actor, bookingID string, newDate time.Time, newTimeSlot string) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, e.reject("reschedule", err)
	}
	if !e.canModify(actor, booking) {
		return nil, e.reject("reschedule", ErrForbidden)
	}
	if booking.Status == models.StatusCanceled {
		return nil, e.reject("reschedule", ErrAlreadyCanceled)
	}
	if booking.SlotStart().Before(e.now()) {
		return nil, e.reject("reschedule", ErrPastBooking)
	}

	activity, err := e.catalog.GetActivity(booking.ActivityID)
	if err != nil {
		return nil, e.reject("reschedule", err)
	}
	if !activity.HasSlot(newTimeSlot) {
		return nil, e.reject("reschedule", ErrUnknownSlot)
	}
	if err := e.validateDate(newDate); err != nil {
		return nil, e.reject("reschedule", err)
	}

	oldKey := models.NewSlotKey(booking.ActivityID, booking.Date, booking.TimeSlot)
	newKey := models.NewSlotKey(booking.ActivityID, newDate, newTimeSlot)

	if newKey == oldKey {
		// Same triple: no capacity movement, only the status tag changes.
		if err := e.store.UpdateBookingStatus(ctx, bookingID, booking.Version, models.StatusRescheduled); err != nil {
			return nil, e.reject("reschedule", err)
		}
	} else {
		err = e.index.TryReserve(ctx, newKey, activity.CapacityPerSlot, func(ctx context.Context) error {
			return e.store.RescheduleBooking(ctx, bookingID, booking.Version, newDate, newTimeSlot, activity.CapacityPerSlot)
		})
		if err != nil {
			if errors.Is(err, database.ErrSlotFull) {
				metrics.IncSlotFull(booking.ActivityID)
			}
			return nil, e.reject("reschedule", err)
		}
		// New slot is held; only now give the old one back.
		e.index.Release(ctx, oldKey)
	}

	updated, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		e.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("reread after reschedule failed")
		local := *booking
		local.Date = newDate
		local.TimeSlot = newTimeSlot
		local.Status = models.StatusRescheduled
		local.Version++
		updated = &local
	}

	metrics.IncBookingOp("reschedule", "success")
	e.publishEvent(events.EventBookingRescheduled, updated, actor)
	e.logger.Info().
		Str("booking_id", bookingID).
		Str("from", oldKey.String()).
		Str("to", newKey.String()).
		Msg("booking rescheduled")
	return updated, nil
}

// UpdateNotes edits the free-form notes. No state-machine effect, no slot
// or date preconditions.
func (e *Engine) UpdateNotes(ctx context.Context, actor models.Actor, bookingID, notes string) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !e.canModify(actor, booking) {
		return nil, ErrForbidden
	}

	if err := e.store.UpdateBookingNotes(ctx, bookingID, notes); err != nil {
		return nil, err
	}

	updated, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		e.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("reread after notes update failed")
		local := *booking
		local.Notes = notes
		updated = &local
	}
	e.publishEvent(events.EventBookingNotesUpdated, updated, actor)
	return updated, nil
}

func (e *Engine) Get(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !e.canModify(actor, booking) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (e *Engine) ListOwn(ctx context.Context, actor models.Actor) ([]*models.Booking, error) {
	return e.store.ListBookingsByOwner(ctx, actor.ID)
}

func (e *Engine) ListAll(ctx context.Context, actor models.Actor) ([]*models.Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	return e.store.ListAllBookings(ctx)
}

// ListAudit returns the append-only transition history of a booking.
// Owners may inspect their own bookings; staff may inspect any.
func (e *Engine) ListAudit(ctx context.Context, actor models.Actor, bookingID string) ([]*models.AuditEntry, error) {
	booking, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !e.canModify(actor, booking) {
		return nil, ErrForbidden
	}
	return e.store.ListAuditEntries(ctx, bookingID)
}

// ListForActivity is the internal read used by availability tooling.
func (e *Engine) ListForActivity(ctx context.Context, activityID string, date time.Time) ([]*models.Booking, error) {
	return e.store.ListBookingsByActivityDate(ctx, activityID, date)
}

// canModify is the single authorization predicate for per-booking
// transitions: the owner, or any staff/admin actor.
func (e *Engine) canModify(actor models.Actor, booking *models.Booking) bool {
	return actor.ID == booking.OwnerID || actor.IsStaff()
}

func (e *Engine) validateDate(date time.Time) error {
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return ErrInvalidDate
	}
	if day.After(today.AddDate(0, 0, e.maxBookingDays)) {
		return ErrDateTooFar
	}
	return nil
}

func (e *Engine) reject(operation string, err error) error {
	metrics.IncBookingOp(operation, "rejected")
	return err
}

func (e *Engine) publishEvent(eventType string, booking *models.Booking, actor models.Actor) {
	if e.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		OwnerID:    booking.OwnerID,
		ActivityID: booking.ActivityID,
		Date:       booking.Date,
		TimeSlot:   booking.TimeSlot,
		Status:     booking.Status,
		Notes:      booking.Notes,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	}
	if err := e.eventBus.PublishJSON(eventType, payload); err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
