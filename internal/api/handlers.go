package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"slotbook/internal/booking"
	"slotbook/internal/catalog"
	"slotbook/internal/database"
	"slotbook/internal/identity"
	"slotbook/internal/models"
)

type createBookingRequest struct {
	ActivityID string `json:"activity_id"`
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
	Notes      string `json:"notes,omitempty"`
}

type rescheduleRequest struct {
	NewDate     string `json:"new_date"`
	NewTimeSlot string `json:"new_time_slot"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" || strings.TrimSpace(req.TimeSlot) == "" {
		writeError(w, http.StatusBadRequest, "activity_id and time_slot are required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	result, err := s.bookings.Create(r.Context(), actor, req.ActivityID, date, req.TimeSlot, req.Notes)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	result, err := s.bookings.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.NewTimeSlot) == "" {
		writeError(w, http.StatusBadRequest, "new_time_slot is required")
		return
	}
	date, err := parseDate(req.NewDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	result, err := s.bookings.Reschedule(r.Context(), actor, r.PathValue("id"), date, req.NewTimeSlot)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.bookings.UpdateNotes(r.Context(), actor, r.PathValue("id"), req.Notes)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	result, err := s.bookings.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleListOwnBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	result, err := s.bookings.ListOwn(r.Context(), actor)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingList(result))
}

func (s *HTTPServer) handleListAllBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	result, err := s.bookings.ListAll(r.Context(), actor)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingList(result))
}

func (s *HTTPServer) handleBookingAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	entries, err := s.bookings.ListAudit(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeBookingError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *HTTPServer) handleListActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Activities())
}

// handleAvailability answers the advisory slot question: with ?slot= it
// reports one slot, without it whether the whole date is bookable.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	activityID := r.PathValue("activity")
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slot := strings.TrimSpace(r.URL.Query().Get("slot"))
	var available bool
	if slot != "" {
		available, err = s.availability.IsSlotAvailable(r.Context(), activityID, date, slot)
	} else {
		available, err = s.availability.IsDateBookable(r.Context(), activityID, date)
	}
	if err != nil {
		writeBookingError(w, err)
		return
	}

	resp := map[string]any{
		"activity_id": activityID,
		"date":        date.Format(models.DateLayout),
		"available":   available,
	}
	if slot != "" {
		resp["time_slot"] = slot
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	activityID := r.PathValue("activity")
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	schedule, err := s.availability.DaySchedule(r.Context(), activityID, date)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity_id": activityID,
		"date":        date.Format(models.DateLayout),
		"slots":       schedule,
	})
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

func bookingList(bookings []*models.Booking) []*models.Booking {
	if bookings == nil {
		return []*models.Booking{}
	}
	return bookings
}

// writeBookingError maps the core's typed failures onto HTTP statuses. The
// core itself never retries; the client decides what to do next.
func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrDateTooFar),
		errors.Is(err, booking.ErrUnknownSlot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, catalog.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotFull),
		errors.Is(err, booking.ErrAlreadyCanceled),
		errors.Is(err, booking.ErrPastBooking),
		errors.Is(err, booking.ErrActivityInactive),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
