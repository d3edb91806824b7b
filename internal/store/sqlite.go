// Package store provides storage backends for LineSchedule.
//
// This file implements an SQLite-backed store for schedule entries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/BTreeMap/LineSchedule/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// Compile-time check that SQLiteStore implements Backend.
var _ Backend = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	cfg := applyOpts(opts)
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	if path := sqliteFilePath(dsn); path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		slog.Debug("SQLite database directory verified/created", "dir", dir)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db, loc: cfg.Location}, nil
}

// sqliteFilePath extracts the file path from a plain path or file: URI DSN.
// In-memory databases have no path.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func (s *SQLiteStore) AddScheduleEntry(ctx context.Context, e models.ScheduleEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, &Error{Op: "add schedule entry", Err: err}
	}

	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO schedules (user_id, message, scheduled_at, created_at) VALUES (?, ?, ?, ?)`,
			e.OwnerID, e.Text, toWallClock(e.ScheduledAt, s.loc), time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule for %s: %w", e.OwnerID, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted schedule id: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("SQLiteStore AddScheduleEntry failed", "error", err, "ownerID", e.OwnerID)
		return 0, &Error{Op: "add schedule entry", Err: err}
	}
	slog.Debug("SQLiteStore AddScheduleEntry succeeded", "id", id, "ownerID", e.OwnerID)
	return id, nil
}

func (s *SQLiteStore) ListScheduleEntries(ctx context.Context, ownerID string, start, end time.Time) ([]models.ScheduleEntry, error) {
	query := `SELECT id, user_id, message, scheduled_at, created_at FROM schedules
		WHERE scheduled_at >= ? AND scheduled_at < ?`
	args := []interface{}{toWallClock(start, s.loc), toWallClock(end, s.loc)}
	if ownerID != "" {
		query += ` AND user_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY scheduled_at ASC, id ASC`

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListScheduleEntries failed", "error", err, "ownerID", ownerID)
		return nil, &Error{Op: "list schedule entries", Err: err}
	}
	slog.Debug("SQLiteStore ListScheduleEntries succeeded", "ownerID", ownerID, "count", len(entries))
	return entries, nil
}

func (s *SQLiteStore) AllScheduleEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	entries, err := s.queryEntries(ctx, `SELECT id, user_id, message, scheduled_at, created_at FROM schedules ORDER BY id ASC`)
	if err != nil {
		return nil, &Error{Op: "export schedule entries", Err: err}
	}
	return entries, nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		var scheduledAt, createdAt string
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Text, &scheduledAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		if e.ScheduledAt, err = fromWallClock(scheduledAt, s.loc); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}
	return entries, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
