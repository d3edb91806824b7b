// Package store provides storage backends for LineSchedule.
//
// This file implements a PostgreSQL-backed store for schedule entries.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/LineSchedule/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// Compile-time check that PostgresStore implements Backend.
var _ Backend = (*PostgresStore)(nil)

type PostgresStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	cfg := applyOpts(opts)
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db, loc: cfg.Location}, nil
}

func (s *PostgresStore) AddScheduleEntry(ctx context.Context, e models.ScheduleEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, &Error{Op: "add schedule entry", Err: err}
	}

	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO schedules (user_id, message, scheduled_at, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			e.OwnerID, e.Text, toWallClock(e.ScheduledAt, s.loc), time.Now().UTC(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to insert schedule for %s: %w", e.OwnerID, err)
		}
		return nil
	})
	if err != nil {
		slog.Error("PostgresStore AddScheduleEntry failed", "error", err, "ownerID", e.OwnerID)
		return 0, &Error{Op: "add schedule entry", Err: err}
	}
	slog.Debug("PostgresStore AddScheduleEntry succeeded", "id", id, "ownerID", e.OwnerID)
	return id, nil
}

func (s *PostgresStore) ListScheduleEntries(ctx context.Context, ownerID string, start, end time.Time) ([]models.ScheduleEntry, error) {
	query := `SELECT id, user_id, message, scheduled_at, created_at FROM schedules
		WHERE scheduled_at >= $1 AND scheduled_at < $2`
	args := []interface{}{toWallClock(start, s.loc), toWallClock(end, s.loc)}
	if ownerID != "" {
		query += ` AND user_id = $3`
		args = append(args, ownerID)
	}
	query += ` ORDER BY scheduled_at ASC, id ASC`

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore ListScheduleEntries failed", "error", err, "ownerID", ownerID)
		return nil, &Error{Op: "list schedule entries", Err: err}
	}
	slog.Debug("PostgresStore ListScheduleEntries succeeded", "ownerID", ownerID, "count", len(entries))
	return entries, nil
}

func (s *PostgresStore) AllScheduleEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	entries, err := s.queryEntries(ctx, `SELECT id, user_id, message, scheduled_at, created_at FROM schedules ORDER BY id ASC`)
	if err != nil {
		return nil, &Error{Op: "export schedule entries", Err: err}
	}
	return entries, nil
}

func (s *PostgresStore) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Text, &e.ScheduledAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		e.ScheduledAt = reanchor(e.ScheduledAt, s.loc)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}
	return entries, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	} else {
		slog.Debug("PostgreSQL database connection closed successfully")
	}
	return err
}
