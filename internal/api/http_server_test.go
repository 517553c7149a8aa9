package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"slotbook/internal/availability"
	"slotbook/internal/booking"
	"slotbook/internal/capacity"
	"slotbook/internal/catalog"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/models"
	"slotbook/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "api-test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "api.db")},
		Auth:     config.AuthConfig{JWTSecret: testJWTSecret},
		API: config.APIConfig{
			HTTP:      config.APIHTTPConfig{Port: 0},
			RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
		},
		Activities: []models.Activity{
			{ID: "tennis-court-1", Name: "Tennis Court 1", CapacityPerSlot: 1, IsActive: true, AvailableSlots: []string{"10:00", "11:00"}},
			{ID: "yoga-class", Name: "Yoga", CapacityPerSlot: 20, IsActive: true, AvailableSlots: []string{"18:00"}},
		},
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cat, err := catalog.NewStatic(cfg.Activities)
	require.NoError(t, err)

	cache := repository.NewMemoryCountCache(30 * time.Second)
	index := capacity.NewIndex(db, cache, &logger)
	engine := booking.NewEngine(db, index, cat, events.NewEventBus(), models.DefaultMaxBookingDays, &logger)
	avail := availability.NewService(index, cat, cache, &logger)

	srv := NewHTTPServer(cfg, engine, avail, cat, &logger)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func bearerToken(t *testing.T, subject, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, raw
}

func createBooking(t *testing.T, ts *httptest.Server, token, activityID, date, slot string) models.Booking {
	t.Helper()
	resp, raw := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", token, map[string]string{
		"activity_id": activityID,
		"date":        date,
		"time_slot":   slot,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var result models.Booking
	require.NoError(t, json.Unmarshal(raw, &result))
	return result
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(models.DateLayout)
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RequiresToken(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateBooking(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)

	result := createBooking(t, ts, token, "tennis-court-1", futureDate(1), "10:00")
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "member-1", result.OwnerID)
	assert.Equal(t, models.StatusConfirmed, result.Status)
}

func TestCreateBooking_Validation(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{
			name: "missing activity",
			body: map[string]string{"date": futureDate(1), "time_slot": "10:00"},
			want: http.StatusBadRequest,
		},
		{
			name: "bad date",
			body: map[string]string{"activity_id": "tennis-court-1", "date": "11/03/2026", "time_slot": "10:00"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown slot",
			body: map[string]string{"activity_id": "tennis-court-1", "date": futureDate(1), "time_slot": "23:59"},
			want: http.StatusBadRequest,
		},
		{
			name: "past date",
			body: map[string]string{"activity_id": "tennis-court-1", "date": futureDate(-3), "time_slot": "10:00"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown activity",
			body: map[string]string{"activity_id": "squash-court", "date": futureDate(1), "time_slot": "10:00"},
			want: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", token, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(raw))
		})
	}
}

func TestCreateBooking_SlotFullConflict(t *testing.T) {
	ts := newTestServer(t)
	date := futureDate(1)

	createBooking(t, ts, bearerToken(t, "member-1", models.RoleMember), "tennis-court-1", date, "10:00")

	resp, raw := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", bearerToken(t, "member-2", models.RoleMember), map[string]string{
		"activity_id": "tennis-court-1",
		"date":        date,
		"time_slot":   "10:00",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))
}

func TestCreateBooking_StaffForbidden(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", bearerToken(t, "staff-1", models.RoleStaff), map[string]string{
		"activity_id": "tennis-court-1",
		"date":        futureDate(1),
		"time_slot":   "10:00",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCancelBooking(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)
	created := createBooking(t, ts, token, "tennis-court-1", futureDate(1), "10:00")

	resp, raw := doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result models.Booking
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, models.StatusCanceled, result.Status)

	// Повторная отмена — конфликт.
	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+created.ID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelBooking_ForeignForbidden(t *testing.T) {
	ts := newTestServer(t)
	created := createBooking(t, ts, bearerToken(t, "member-1", models.RoleMember), "tennis-court-1", futureDate(1), "10:00")

	resp, _ := doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+created.ID, bearerToken(t, "member-2", models.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/"+created.ID, bearerToken(t, "staff-1", models.RoleStaff), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCancelBooking_NotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodDelete, "/api/v1/bookings/no-such-id", bearerToken(t, "member-1", models.RoleMember), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRescheduleBooking(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)
	created := createBooking(t, ts, token, "tennis-court-1", futureDate(1), "10:00")

	resp, raw := doRequest(t, ts, http.MethodPost, "/api/v1/bookings/"+created.ID+"/reschedule", token, map[string]string{
		"new_date":      futureDate(2),
		"new_time_slot": "11:00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result models.Booking
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, models.StatusRescheduled, result.Status)
	assert.Equal(t, "11:00", result.TimeSlot)
}

func TestRescheduleBooking_TargetFull(t *testing.T) {
	ts := newTestServer(t)
	date := futureDate(1)
	tokenA := bearerToken(t, "member-1", models.RoleMember)
	created := createBooking(t, ts, tokenA, "tennis-court-1", date, "10:00")
	createBooking(t, ts, bearerToken(t, "member-2", models.RoleMember), "tennis-court-1", date, "11:00")

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/v1/bookings/"+created.ID+"/reschedule", tokenA, map[string]string{
		"new_date":      date,
		"new_time_slot": "11:00",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateNotes(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)
	created := createBooking(t, ts, token, "tennis-court-1", futureDate(1), "10:00")

	resp, raw := doRequest(t, ts, http.MethodPatch, "/api/v1/bookings/"+created.ID+"/notes", token, map[string]string{
		"notes": "bring extra rackets",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result models.Booking
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "bring extra rackets", result.Notes)
}

func TestListBookings(t *testing.T) {
	ts := newTestServer(t)
	tokenA := bearerToken(t, "member-1", models.RoleMember)
	tokenB := bearerToken(t, "member-2", models.RoleMember)
	createBooking(t, ts, tokenA, "tennis-court-1", futureDate(1), "10:00")
	createBooking(t, ts, tokenB, "yoga-class", futureDate(1), "18:00")

	resp, raw := doRequest(t, ts, http.MethodGet, "/api/v1/bookings", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var own []models.Booking
	require.NoError(t, json.Unmarshal(raw, &own))
	require.Len(t, own, 1)
	assert.Equal(t, "member-1", own[0].OwnerID)

	// /all только для персонала.
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/all", tokenA, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/all", bearerToken(t, "staff-1", models.RoleStaff), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Booking
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 2)
}

func TestListBookings_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	resp, raw := doRequest(t, ts, http.MethodGet, "/api/v1/bookings", bearerToken(t, "member-9", models.RoleMember), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(raw))
}

func TestGetBooking_Authorization(t *testing.T) {
	ts := newTestServer(t)
	created := createBooking(t, ts, bearerToken(t, "member-1", models.RoleMember), "tennis-court-1", futureDate(1), "10:00")

	resp, _ := doRequest(t, ts, http.MethodGet, "/api/v1/bookings/"+created.ID, bearerToken(t, "member-2", models.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/"+created.ID, bearerToken(t, "admin-1", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListActivities(t *testing.T) {
	ts := newTestServer(t)
	resp, raw := doRequest(t, ts, http.MethodGet, "/api/v1/activities", bearerToken(t, "member-1", models.RoleMember), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activities []models.Activity
	require.NoError(t, json.Unmarshal(raw, &activities))
	assert.Len(t, activities, 2)
}

func TestAvailability(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)
	date := futureDate(1)

	path := fmt.Sprintf("/api/v1/availability/tennis-court-1?date=%s&slot=10:00", date)
	resp, raw := doRequest(t, ts, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]any
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, true, result["available"])

	createBooking(t, ts, token, "tennis-court-1", date, "10:00")

	resp, raw = doRequest(t, ts, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, false, result["available"])
}

func TestAvailability_UnknownActivity(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/v1/availability/squash-court?date=" + futureDate(1)
	resp, _ := doRequest(t, ts, http.MethodGet, path, bearerToken(t, "member-1", models.RoleMember), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit_PerActor(t *testing.T) {
	logger := zerolog.New(io.Discard)

	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "rate.db")},
		Auth:     config.AuthConfig{JWTSecret: testJWTSecret},
		API: config.APIConfig{
			RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 2},
		},
		Activities: []models.Activity{
			{ID: "tennis-court-1", Name: "Tennis Court 1", CapacityPerSlot: 1, IsActive: true, AvailableSlots: []string{"10:00"}},
		},
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cat, err := catalog.NewStatic(cfg.Activities)
	require.NoError(t, err)

	cache := repository.NewMemoryCountCache(30 * time.Second)
	index := capacity.NewIndex(db, cache, &logger)
	engine := booking.NewEngine(db, index, cat, events.NewEventBus(), models.DefaultMaxBookingDays, &logger)
	avail := availability.NewService(index, cat, cache, &logger)

	ts := httptest.NewServer(NewHTTPServer(cfg, engine, avail, cat, &logger).server.Handler)
	t.Cleanup(ts.Close)

	throttled := bearerToken(t, "member-throttled", models.RoleMember)
	limited := false
	for i := 0; i < 5; i++ {
		resp, _ := doRequest(t, ts, http.MethodGet, "/api/v1/bookings", throttled, nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst exhausted within 5 rapid requests")

	// Лимит на каждого актора свой.
	resp, _ := doRequest(t, ts, http.MethodGet, "/api/v1/bookings", bearerToken(t, "member-fresh", models.RoleMember), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSchedule(t *testing.T) {
	ts := newTestServer(t)
	token := bearerToken(t, "member-1", models.RoleMember)
	date := futureDate(1)
	createBooking(t, ts, token, "tennis-court-1", date, "10:00")

	resp, raw := doRequest(t, ts, http.MethodGet, "/api/v1/schedule/tennis-court-1?date="+date, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		ActivityID string                    `json:"activity_id"`
		Slots      []models.SlotAvailability `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Slots, 2)
	assert.False(t, result.Slots[0].Available)
	assert.True(t, result.Slots[1].Available)
}
