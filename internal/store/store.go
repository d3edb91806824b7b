// Package store provides storage backends for LineSchedule.
//
// It persists schedule entries and the bookkeeping tables the webhook needs
// (inbound deduplication and the push outbox). Backends are in-memory,
// SQLite and PostgreSQL; all of them satisfy Backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/BTreeMap/LineSchedule/internal/timewindow"
)

// Store persists and retrieves schedule entries. Entries are immutable once written.
type Store interface {
	// AddScheduleEntry validates and inserts e, returning the assigned ID.
	AddScheduleEntry(ctx context.Context, e models.ScheduleEntry) (int64, error)

	// ListScheduleEntries returns the entries with ScheduledAt in [start, end),
	// ordered by ScheduledAt then insertion. An empty ownerID matches all owners.
	ListScheduleEntries(ctx context.Context, ownerID string, start, end time.Time) ([]models.ScheduleEntry, error)

	// Close releases the underlying resources.
	Close() error
}

// Exporter returns every stored entry, used for snapshot export.
type Exporter interface {
	AllScheduleEntries(ctx context.Context) ([]models.ScheduleEntry, error)
}

// Backend is the full set of repositories a storage backend provides.
type Backend interface {
	Store
	Exporter
	DedupRepo
	OutboxRepo
}

// Error is returned for any failed store operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Opts holds configuration options for the store backends.
type Opts struct {
	DSN      string
	Postgres bool
	Location *time.Location // zone schedule wall clocks are interpreted in
}

// Option defines a configuration option for the store.
type Option func(*Opts)

// WithSQLiteDSN selects the SQLite backend with the given file DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Postgres = false
	}
}

// WithPostgresDSN selects the PostgreSQL backend with the given connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Postgres = true
	}
}

// WithLocation sets the zone schedule wall clocks are stored and read in.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) {
		o.Location = loc
	}
}

func applyOpts(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Location == nil {
		cfg.Location = timewindow.DefaultLocation
	}
	return cfg
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or key=value
// connection strings, and "sqlite3" for anything else.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") {
		return "postgres"
	}
	if strings.Count(lower, "=") >= 2 && strings.Contains(lower, " ") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend selected by opts. Without a DSN the in-memory store is used.
func New(opts ...Option) (Backend, error) {
	cfg := applyOpts(opts)
	switch {
	case cfg.DSN == "":
		slog.Debug("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(opts...), nil
	case cfg.Postgres:
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}
