package booking

import "errors"

// Lifecycle-level failures. Store-level kinds (ErrNotFound, ErrSlotFull,
// ErrStoreUnavailable, ErrConcurrentModification) live in the database
// package and pass through the engine untouched.
var (
	// ErrInvalidDate is returned when the requested date is in the past.
	ErrInvalidDate = errors.New("booking date is in the past")

	// ErrDateTooFar is returned when the requested date is beyond the
	// configured booking horizon.
	ErrDateTooFar = errors.New("booking date is too far in the future")

	// ErrUnknownSlot is returned when the time-slot label is not part of the
	// activity's daily slot set.
	ErrUnknownSlot = errors.New("time slot is not offered by this activity")

	// ErrActivityInactive is returned when the activity no longer accepts
	// new bookings.
	ErrActivityInactive = errors.New("activity is not accepting bookings")

	// ErrForbidden is returned when the actor lacks ownership or role for
	// the requested transition.
	ErrForbidden = errors.New("actor is not allowed to perform this operation")

	// ErrAlreadyCanceled is returned for any transition attempted on a
	// canceled booking.
	ErrAlreadyCanceled = errors.New("booking is already canceled")

	// ErrPastBooking is returned when the booking's slot has already
	// elapsed. Applies to owners and staff alike.
	ErrPastBooking = errors.New("booking slot has already elapsed")
)
