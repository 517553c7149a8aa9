package models

import "time"

type Booking struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ActivityID string    `json:"activity_id"`
	Date       time.Time `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	Status     string    `json:"status"` // confirmed, canceled, rescheduled
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// OccupiesSlot reports whether the booking counts toward its triple's
// capacity. A rescheduled booking occupies its new slot exactly like a
// confirmed one; only the literal status tag differs.
func (b *Booking) OccupiesSlot() bool {
	return b.Status == StatusConfirmed || b.Status == StatusRescheduled
}

// SlotStart combines the booking date with its slot label ("15:04" format).
// Labels that do not parse as a clock time fall back to midnight, which makes
// the past-slot check strictly stricter, never laxer.
func (b *Booking) SlotStart() time.Time {
	return SlotStart(b.Date, b.TimeSlot)
}

func SlotStart(date time.Time, timeSlot string) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	clock, err := time.Parse("15:04", timeSlot)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
}

type SlotAvailability struct {
	TimeSlot  string `json:"time_slot"`
	Booked    int    `json:"booked"`
	Capacity  int    `json:"capacity"`
	Available bool   `json:"available"`
}
