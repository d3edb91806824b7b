package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/models"
	"github.com/google/uuid"
)

// Compile-time check that InMemoryStore implements Backend.
var _ Backend = (*InMemoryStore)(nil)

// InMemoryStore keeps everything in process memory. It backs tests and the
// snapshot-only deployment mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	loc     *time.Location
	entries []models.ScheduleEntry
	nextID  int64
	lastAt  time.Time
	dedup   map[string]*DedupRecord
	outbox  map[string]*OutboxMessage
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	cfg := applyOpts(opts)
	return &InMemoryStore{
		loc:    cfg.Location,
		nextID: 1,
		dedup:  make(map[string]*DedupRecord),
		outbox: make(map[string]*OutboxMessage),
		now:    time.Now,
	}
}

// Restore loads previously exported entries, keeping their IDs. Later inserts
// continue after the highest restored ID.
func (s *InMemoryStore) Restore(entries []models.ScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e.ScheduledAt = reanchor(e.ScheduledAt, s.loc)
		s.entries = append(s.entries, e)
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
		if e.CreatedAt.After(s.lastAt) {
			s.lastAt = e.CreatedAt
		}
	}
	slog.Debug("InMemoryStore.Restore: entries restored", "count", len(entries), "nextID", s.nextID)
}

func (s *InMemoryStore) AddScheduleEntry(ctx context.Context, e models.ScheduleEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, &Error{Op: "add schedule entry", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return 0, &Error{Op: "add schedule entry", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now()
	if created.Before(s.lastAt) {
		created = s.lastAt
	}
	s.lastAt = created

	e.ID = s.nextID
	e.ScheduledAt = reanchor(e.ScheduledAt.In(s.loc), s.loc)
	e.CreatedAt = created
	s.nextID++
	s.entries = append(s.entries, e)

	slog.Debug("InMemoryStore.AddScheduleEntry succeeded", "id", e.ID, "ownerID", e.OwnerID)
	return e.ID, nil
}

func (s *InMemoryStore) ListScheduleEntries(ctx context.Context, ownerID string, start, end time.Time) ([]models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "list schedule entries", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if ownerID != "" && e.OwnerID != ownerID {
			continue
		}
		if e.ScheduledAt.Before(start) || !e.ScheduledAt.Before(end) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *InMemoryStore) AllScheduleEntries(ctx context.Context) ([]models.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func (s *InMemoryStore) RecordInbound(ctx context.Context, eventID, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[eventID]; ok {
		return false, nil
	}
	s.dedup[eventID] = &DedupRecord{EventID: eventID, OwnerID: ownerID, ReceivedAt: s.now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.dedup[eventID]; ok {
		now := s.now()
		rec.ProcessedAt = &now
	}
	return nil
}

func (s *InMemoryStore) EnqueueOutboxMessage(ctx context.Context, ownerID, kind, payloadJSON, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for _, m := range s.outbox {
			if m.DedupeKey == dedupeKey && !m.Status.terminal() {
				return m.ID, nil
			}
		}
	}
	now := s.now()
	m := &OutboxMessage{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		PayloadJSON: payloadJSON,
		Status:      OutboxStatusQueued,
		DedupeKey:   dedupeKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.outbox[m.ID] = m
	return m.ID, nil
}

func (s *InMemoryStore) ClaimDueOutboxMessages(ctx context.Context, now time.Time, limit int) ([]OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*OutboxMessage
	for _, m := range s.outbox {
		if m.Status != OutboxStatusQueued {
			continue
		}
		if m.NextAttemptAt != nil && m.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, m)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]OutboxMessage, 0, len(due))
	for _, m := range due {
		locked := now
		m.Status = OutboxStatusSending
		m.LockedAt = &locked
		m.UpdatedAt = now
		out = append(out, *m)
	}
	return out, nil
}

func (s *InMemoryStore) MarkOutboxMessageSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.outbox[id]; ok {
		m.Status = OutboxStatusSent
		m.UpdatedAt = s.now()
	}
	return nil
}

func (s *InMemoryStore) FailOutboxMessage(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.outbox[id]
	if !ok {
		return nil
	}
	m.Attempts++
	m.LastError = errMsg
	m.LockedAt = nil
	m.UpdatedAt = s.now()
	if maxAttempts > 0 && m.Attempts >= maxAttempts {
		m.Status = OutboxStatusFailed
		return nil
	}
	next := nextAttemptAt
	m.NextAttemptAt = &next
	m.Status = OutboxStatusQueued
	return nil
}

func (s *InMemoryStore) RequeueStaleSendingMessages(ctx context.Context, staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.outbox {
		if m.Status == OutboxStatusSending && m.LockedAt != nil && m.LockedAt.Before(staleBefore) {
			m.Status = OutboxStatusQueued
			m.LockedAt = nil
			n++
		}
	}
	return n, nil
}

// GetOutboxMessage returns a copy of the outbox message with id, or nil.
func (s *InMemoryStore) GetOutboxMessage(id string) *OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.outbox[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}
