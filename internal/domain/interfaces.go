package domain

import (
	"context"
	"time"

	"slotbook/internal/models"
)

// Store is the durable booking collection. All mutating operations are
// atomic: either the status change and any capacity recount both take
// effect, or neither does.
type Store interface {
	CountOccupying(ctx context.Context, activityID string, date time.Time, timeSlot string) (int, error)
	CreateBooking(ctx context.Context, booking *models.Booking, capacity int) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, fromVersion int64, status string) error
	RescheduleBooking(ctx context.Context, id string, fromVersion int64, newDate time.Time, newTimeSlot string, capacity int) error
	UpdateBookingNotes(ctx context.Context, id string, notes string) error
	ListBookingsByOwner(ctx context.Context, ownerID string) ([]*models.Booking, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByActivityDate(ctx context.Context, activityID string, date time.Time) ([]*models.Booking, error)
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, bookingID string) ([]*models.AuditEntry, error)
}

// CapacityIndex serializes admission per slot key. TryReserve runs the commit
// callback while holding the key's lock so two requests racing for the last
// open unit cannot both observe capacity available.
type CapacityIndex interface {
	CurrentCount(ctx context.Context, activityID string, date time.Time, timeSlot string) (int, error)
	TryReserve(ctx context.Context, key models.SlotKey, capacity int, commit func(ctx context.Context) error) error
	Release(ctx context.Context, key models.SlotKey)
}

// Catalog is the read-only activity reference data supplied by the
// environment.
type Catalog interface {
	GetActivity(id string) (*models.Activity, error)
	Activities() []*models.Activity
}

// CountCache holds short-lived advisory occupancy counts for availability
// reads. A miss is not an error.
type CountCache interface {
	GetCount(ctx context.Context, key models.SlotKey) (int, bool, error)
	SetCount(ctx context.Context, key models.SlotKey, count int) error
	Invalidate(ctx context.Context, key models.SlotKey) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingService is the lifecycle engine surface consumed by the API layer.
type BookingService interface {
	Create(ctx context.Context, actor models.Actor, activityID string, date time.Time, timeSlot, notes string) (*models.Booking, error)
	Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	Reschedule(ctx context.Context, actor models.Actor, bookingID string, newDate time.Time, newTimeSlot string) (*models.Booking, error)
	UpdateNotes(ctx context.Context, actor models.Actor, bookingID, notes string) (*models.Booking, error)
	Get(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	ListOwn(ctx context.Context, actor models.Actor) ([]*models.Booking, error)
	ListAll(ctx context.Context, actor models.Actor) ([]*models.Booking, error)
	ListAudit(ctx context.Context, actor models.Actor, bookingID string) ([]*models.AuditEntry, error)
}

// AvailabilityService answers advisory "may this slot be offered" reads for
// calendar rendering. The authoritative admission check lives in TryReserve.
type AvailabilityService interface {
	IsSlotAvailable(ctx context.Context, activityID string, date time.Time, timeSlot string) (bool, error)
	IsDateBookable(ctx context.Context, activityID string, date time.Time) (bool, error)
	DaySchedule(ctx context.Context, activityID string, date time.Time) ([]models.SlotAvailability, error)
}
