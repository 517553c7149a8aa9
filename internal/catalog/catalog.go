// Package catalog serves the activity reference data the booking core reads
// but never writes. Activities are loaded once from configuration, the same
// way the deployment provisions courts, pools and classes.
package catalog

import (
	"errors"
	"fmt"

	"slotbook/internal/models"
)

var ErrActivityNotFound = errors.New("activity not found")

type Static struct {
	byID    map[string]*models.Activity
	ordered []*models.Activity
}

func NewStatic(activities []models.Activity) (*Static, error) {
	if err := Validate(activities); err != nil {
		return nil, err
	}
	c := &Static{byID: make(map[string]*models.Activity, len(activities))}
	for idx := range activities {
		a := activities[idx]
		c.byID[a.ID] = &a
		c.ordered = append(c.ordered, &a)
	}
	return c, nil
}

func Validate(activities []models.Activity) error {
	seen := make(map[string]bool)
	for _, a := range activities {
		if a.ID == "" {
			return fmt.Errorf("activity %q has empty id", a.Name)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		seen[a.ID] = true
		if a.CapacityPerSlot <= 0 {
			return fmt.Errorf("activity %s has invalid capacity_per_slot %d", a.ID, a.CapacityPerSlot)
		}
		if len(a.AvailableSlots) == 0 {
			return fmt.Errorf("activity %s has no available_slots", a.ID)
		}
		slots := make(map[string]bool)
		for _, slot := range a.AvailableSlots {
			if slots[slot] {
				return fmt.Errorf("activity %s has duplicate slot %q", a.ID, slot)
			}
			slots[slot] = true
		}
	}
	return nil
}

func (c *Static) GetActivity(id string) (*models.Activity, error) {
	activity, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
	}
	return activity, nil
}

func (c *Static) Activities() []*models.Activity {
	return c.ordered
}
