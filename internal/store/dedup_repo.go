// Package store provides the DedupRepo interface for inbound webhook deduplication.
package store

import (
	"context"
	"time"
)

// DedupRecord represents an inbound webhook event that has been seen.
type DedupRecord struct {
	EventID     string     `json:"event_id"`
	OwnerID     string     `json:"owner_id"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// DedupRepo defines the interface for inbound webhook event deduplication.
// The platform redelivers events it could not confirm, so a postback must
// not book the same entry twice.
type DedupRepo interface {
	// RecordInbound inserts a new event record. Returns false if the
	// event was already recorded (duplicate).
	RecordInbound(ctx context.Context, eventID, ownerID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for an event.
	MarkProcessed(ctx context.Context, eventID string) error
}
