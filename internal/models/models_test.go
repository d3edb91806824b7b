package models

import (
	"strings"
	"testing"
	"time"
)

func TestScheduleEntryValidate(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		entry   ScheduleEntry
		wantErr error
	}{
		{"valid", ScheduleEntry{OwnerID: "U1", Text: "Dentist", ScheduledAt: at}, nil},
		{"missing owner", ScheduleEntry{Text: "Dentist", ScheduledAt: at}, ErrEmptyOwner},
		{"blank text", ScheduleEntry{OwnerID: "U1", Text: "  ", ScheduledAt: at}, ErrEmptyText},
		{"text too long", ScheduleEntry{OwnerID: "U1", Text: strings.Repeat("a", MaxEntryTextLength+1), ScheduledAt: at}, ErrEntryTextTooLong},
		{"zero time", ScheduleEntry{OwnerID: "U1", Text: "Dentist"}, ErrMissingScheduledAt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.entry.Validate(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIsValidIntentKind(t *testing.T) {
	for _, k := range []IntentKind{IntentCreateSchedule, IntentQueryDay, IntentGenerateReport} {
		if !IsValidIntentKind(k) {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if IsValidIntentKind("delete") {
		t.Error("expected unknown intent kind to be invalid")
	}
}

func TestAPIResponseHelpers(t *testing.T) {
	ok := Success(map[string]string{"a": "b"})
	if ok.Status != "ok" || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}
	e := Error("boom")
	if e.Status != "error" || e.Message != "boom" {
		t.Errorf("unexpected error response: %+v", e)
	}
}
