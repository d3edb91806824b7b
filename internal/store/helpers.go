package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
)

// wallClockLayout is how scheduled times are persisted: a naive wall clock
// whose lexical order matches chronological order.
const wallClockLayout = "2006-01-02T15:04:05"

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// toWallClock renders t as a naive wall clock in loc.
func toWallClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(wallClockLayout)
}

// fromWallClock parses a naive wall clock as a time in loc.
func fromWallClock(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(wallClockLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored wall clock %q: %w", s, err)
	}
	return t, nil
}

// reanchor keeps t's wall clock fields and attaches loc. Drivers return
// zone-less timestamps in UTC; the stored value is a wall clock in loc.
func reanchor(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// sortEntries orders entries by scheduled time, falling back to insertion order.
func sortEntries(entries []models.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ScheduledAt.Equal(entries[j].ScheduledAt) {
			return entries[i].ScheduledAt.Before(entries[j].ScheduledAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error. There is no retry.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("store.withTx: rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// scanOutboxMessage scans an OutboxMessage from sql.Rows.
func scanOutboxMessage(rows *sql.Rows) (OutboxMessage, error) {
	var m OutboxMessage
	var payloadJSON, dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := rows.Scan(
		&m.ID, &m.OwnerID, &m.Kind, &payloadJSON, &m.Status, &m.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, fmt.Errorf("scan outbox message failed: %w", err)
	}
	m.PayloadJSON = payloadJSON.String
	m.DedupeKey = dedupeKey.String
	m.LastError = lastError.String
	if nextAttemptAt.Valid {
		m.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		m.LockedAt = &lockedAt.Time
	}
	return m, nil
}
