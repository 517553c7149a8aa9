package models

import "time"

// AuditEntry records one lifecycle transition for a booking. Entries are
// append-only; the booking rows themselves are never deleted either.
type AuditEntry struct {
	ID        int64     `json:"id"`
	BookingID string    `json:"booking_id"`
	EventType string    `json:"event_type"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorRole string    `json:"actor_role,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
