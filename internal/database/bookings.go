package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/models"
)

const bookingColumns = `id, owner_id, activity_id, slot_date, time_slot, status, notes, created_at, updated_at, version`

const countOccupyingQuery = `SELECT COUNT(*) FROM bookings
	WHERE activity_id = ? AND slot_date = ? AND time_slot = ? AND status IN (?, ?)`

// CountOccupying returns how many bookings currently hold capacity for the
// triple: confirmed plus rescheduled, never canceled ones.
func (db *DB) CountOccupying(ctx context.Context, activityID string, date time.Time, timeSlot string) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx, countOccupyingQuery,
		activityID, date.Format(models.DateLayout), timeSlot,
		models.StatusConfirmed, models.StatusRescheduled,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count occupying bookings: %w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// CreateBooking inserts a new confirmed booking, re-checking the triple's
// occupancy against capacity inside the same transaction. Returns ErrSlotFull
// without inserting when the triple is already at capacity.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking, capacity int) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %v", ErrStoreUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var occupied int
	err = tx.QueryRowContext(ctx, countOccupyingQuery,
		booking.ActivityID, booking.Date.Format(models.DateLayout), booking.TimeSlot,
		models.StatusConfirmed, models.StatusRescheduled,
	).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("failed to check capacity in tx: %w: %v", ErrStoreUnavailable, err)
	}
	if occupied >= capacity {
		return ErrSlotFull
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, owner_id, activity_id, slot_date, time_slot,
			status, notes, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.OwnerID,
		booking.ActivityID,
		booking.Date.Format(models.DateLayout),
		booking.TimeSlot,
		booking.Status,
		booking.Notes,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w: %v", ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w: %v", ErrStoreUnavailable, err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w: %v", ErrStoreUnavailable, err)
	}
	return booking, nil
}

// UpdateBookingStatus flips the status with an optimistic version check.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, fromVersion int64, status string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w: %v", ErrStoreUnavailable, err)
	}
	return db.checkAffected(ctx, result, id)
}

// RescheduleBooking moves a booking to a new triple in one transaction:
// the new triple's capacity is checked and claimed before the old one is
// given up, so a full target slot leaves the original reservation intact.
func (db *DB) RescheduleBooking(ctx context.Context, id string, fromVersion int64, newDate time.Time, newTimeSlot string, capacity int) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %v", ErrStoreUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The booking's own row must not count against the target triple when
	// rescheduling inside the same slot.
	var occupied int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE activity_id = (SELECT activity_id FROM bookings WHERE id = ?)
		   AND slot_date = ? AND time_slot = ? AND status IN (?, ?) AND id != ?`,
		id, newDate.Format(models.DateLayout), newTimeSlot,
		models.StatusConfirmed, models.StatusRescheduled, id,
	).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("failed to check capacity in tx: %w: %v", ErrStoreUnavailable, err)
	}
	if occupied >= capacity {
		return ErrSlotFull
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET slot_date = ?, time_slot = ?, status = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		newDate.Format(models.DateLayout), newTimeSlot, models.StatusRescheduled, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w: %v", ErrStoreUnavailable, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (db *DB) UpdateBookingNotes(ctx context.Context, id string, notes string) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking notes: %w: %v", ErrStoreUnavailable, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListBookingsByOwner(ctx context.Context, ownerID string) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE owner_id = ? ORDER BY slot_date ASC, time_slot ASC`,
		ownerID)
}

func (db *DB) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY slot_date ASC, time_slot ASC, created_at ASC`)
}

func (db *DB) ListBookingsByActivityDate(ctx context.Context, activityID string, date time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE activity_id = ? AND slot_date = ? ORDER BY time_slot ASC`,
		activityID, date.Format(models.DateLayout))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w: %v", ErrStoreUnavailable, err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w: %v", ErrStoreUnavailable, err)
	}
	return bookings, nil
}

// checkAffected distinguishes a missing row from a version conflict after an
// UPDATE touched nothing.
func (db *DB) checkAffected(ctx context.Context, result sql.Result, id string) error {
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}
	var exists int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to recheck booking: %w: %v", ErrStoreUnavailable, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConcurrentModification
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var booking models.Booking
	var dateStr string
	err := row.Scan(
		&booking.ID, &booking.OwnerID, &booking.ActivityID, &dateStr, &booking.TimeSlot,
		&booking.Status, &booking.Notes, &booking.CreatedAt, &booking.UpdatedAt, &booking.Version,
	)
	if err != nil {
		return nil, err
	}
	booking.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return &booking, nil
}
