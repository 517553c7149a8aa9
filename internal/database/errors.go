package database

import "errors"

var (
	// ErrNotFound is returned when no booking exists for the given id.
	ErrNotFound = errors.New("booking not found")

	// ErrSlotFull is returned when the (activity, date, slot) triple has no
	// remaining capacity at the moment of reservation.
	ErrSlotFull = errors.New("slot capacity exhausted")

	// ErrConcurrentModification signals a lost optimistic-version race.
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	// ErrStoreUnavailable wraps driver or transport failures. No partial
	// mutation has taken place when it is returned.
	ErrStoreUnavailable = errors.New("booking store unavailable")
)
