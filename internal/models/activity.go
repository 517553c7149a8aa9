package models

type Activity struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	CapacityPerSlot int      `yaml:"capacity_per_slot" json:"capacity_per_slot"`
	AvailableSlots  []string `yaml:"available_slots" json:"available_slots"`
	IsActive        bool     `yaml:"is_active" json:"is_active"`
}

func (a *Activity) HasSlot(label string) bool {
	for _, s := range a.AvailableSlots {
		if s == label {
			return true
		}
	}
	return false
}
