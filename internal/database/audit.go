package database

import (
	"context"
	"fmt"
	"time"

	"slotbook/internal/models"
)

func (db *DB) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	now := entry.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	result, err := db.db.ExecContext(ctx,
		`INSERT INTO audit_log (booking_id, event_type, actor_id, actor_role, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.BookingID, entry.EventType, entry.ActorID, entry.ActorRole, entry.Details, now)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w: %v", ErrStoreUnavailable, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry id: %w: %v", ErrStoreUnavailable, err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (db *DB) ListAuditEntries(ctx context.Context, bookingID string) ([]*models.AuditEntry, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, booking_id, event_type, actor_id, actor_role, details, created_at
		 FROM audit_log WHERE booking_id = ? ORDER BY id ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.BookingID, &entry.EventType,
			&entry.ActorID, &entry.ActorRole, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w: %v", ErrStoreUnavailable, err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}
