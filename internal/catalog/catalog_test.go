package catalog

import (
	"testing"

	"slotbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validActivities() []models.Activity {
	return []models.Activity{
		{ID: "tennis-court-1", Name: "Tennis Court 1", CapacityPerSlot: 1, IsActive: true, AvailableSlots: []string{"10:00", "11:00"}},
		{ID: "pool-lanes", Name: "Pool Lanes", CapacityPerSlot: 8, IsActive: true, AvailableSlots: []string{"08:00"}},
	}
}

func TestNewStatic(t *testing.T) {
	cat, err := NewStatic(validActivities())
	require.NoError(t, err)

	activity, err := cat.GetActivity("tennis-court-1")
	require.NoError(t, err)
	assert.Equal(t, "Tennis Court 1", activity.Name)
	assert.True(t, activity.HasSlot("10:00"))
	assert.False(t, activity.HasSlot("12:00"))

	// Порядок из конфигурации сохраняется.
	all := cat.Activities()
	require.Len(t, all, 2)
	assert.Equal(t, "tennis-court-1", all[0].ID)
	assert.Equal(t, "pool-lanes", all[1].ID)
}

func TestGetActivity_NotFound(t *testing.T) {
	cat, err := NewStatic(validActivities())
	require.NoError(t, err)

	_, err = cat.GetActivity("squash-court")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func([]models.Activity) []models.Activity
		wantErrMsg string
	}{
		{
			name:   "valid",
			mutate: func(a []models.Activity) []models.Activity { return a },
		},
		{
			name: "empty id",
			mutate: func(a []models.Activity) []models.Activity {
				a[0].ID = ""
				return a
			},
			wantErrMsg: "empty id",
		},
		{
			name: "duplicate id",
			mutate: func(a []models.Activity) []models.Activity {
				a[1].ID = a[0].ID
				return a
			},
			wantErrMsg: "duplicate activity id",
		},
		{
			name: "zero capacity",
			mutate: func(a []models.Activity) []models.Activity {
				a[0].CapacityPerSlot = 0
				return a
			},
			wantErrMsg: "invalid capacity_per_slot",
		},
		{
			name: "no slots",
			mutate: func(a []models.Activity) []models.Activity {
				a[0].AvailableSlots = nil
				return a
			},
			wantErrMsg: "no available_slots",
		},
		{
			name: "duplicate slot",
			mutate: func(a []models.Activity) []models.Activity {
				a[0].AvailableSlots = []string{"10:00", "10:00"}
				return a
			},
			wantErrMsg: "duplicate slot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mutate(validActivities()))
			if tt.wantErrMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}
}
