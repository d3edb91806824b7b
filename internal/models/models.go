// Package models defines the core data structures for LineSchedule.
//
// It includes the schedule entry record, the classified user intents and the
// JSON envelope used by the HTTP API. These types are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxEntryTextLength defines the maximum allowed length for entry text.
	// The picker payload caps it much earlier in practice.
	MaxEntryTextLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyOwner         = errors.New("owner id cannot be empty")
	ErrEmptyText          = errors.New("entry text cannot be empty")
	ErrEntryTextTooLong   = errors.New("entry text exceeds maximum length")
	ErrMissingScheduledAt = errors.New("scheduled time is required")
)

// ScheduleEntry is a single calendar event registered by a user.
type ScheduleEntry struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Text        string    `json:"text"`
	ScheduledAt time.Time `json:"scheduled_at"` // wall clock in the configured zone, trusted verbatim
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the invariants every persisted entry must hold.
func (e *ScheduleEntry) Validate() error {
	if e.OwnerID == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(e.Text) == "" {
		return ErrEmptyText
	}
	if len(e.Text) > MaxEntryTextLength {
		return ErrEntryTextTooLong
	}
	if e.ScheduledAt.IsZero() {
		return ErrMissingScheduledAt
	}
	return nil
}

// IntentKind identifies what the user asked for.
type IntentKind string

const (
	// IntentCreateSchedule registers a new entry carrying the message text.
	IntentCreateSchedule IntentKind = "schedule"
	// IntentQueryDay lists the entries of a picked day.
	IntentQueryDay IntentKind = "query"
	// IntentGenerateReport produces a narrative report of a picked day.
	IntentGenerateReport IntentKind = "report"
)

// IsValidIntentKind checks if the given intent kind is supported.
func IsValidIntentKind(k IntentKind) bool {
	switch k {
	case IntentCreateSchedule, IntentQueryDay, IntentGenerateReport:
		return true
	default:
		return false
	}
}

// Intent is the result of classifying an inbound text message.
// Payload is only meaningful for IntentCreateSchedule.
type Intent struct {
	Kind    IntentKind `json:"kind"`
	Payload string     `json:"payload,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
