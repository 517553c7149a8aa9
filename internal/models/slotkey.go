package models

import "time"

// SlotKey identifies one unit of bookable capacity: the
// (activity, date, time-slot) triple.
type SlotKey struct {
	ActivityID string
	Date       string // DateLayout
	TimeSlot   string
}

func NewSlotKey(activityID string, date time.Time, timeSlot string) SlotKey {
	return SlotKey{
		ActivityID: activityID,
		Date:       date.Format(DateLayout),
		TimeSlot:   timeSlot,
	}
}

func (k SlotKey) String() string {
	return k.ActivityID + "|" + k.Date + "|" + k.TimeSlot
}
