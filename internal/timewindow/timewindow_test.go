package timewindow

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	r := New(nil)
	now := time.Date(2025, 3, 1, 1, 37, 42, 0, time.UTC) // 10:37:42 JST

	w := r.Resolve(now)

	wantInitial := time.Date(2025, 3, 1, 10, 0, 0, 0, DefaultLocation)
	if !w.Initial.Equal(wantInitial) {
		t.Errorf("expected initial %v, got %v", wantInitial, w.Initial)
	}
	if !w.Min.Equal(now.Add(-365 * 24 * time.Hour)) {
		t.Errorf("expected min one year before now, got %v", w.Min)
	}
	if !w.Max.Equal(now.Add(365 * 24 * time.Hour)) {
		t.Errorf("expected max one year after now, got %v", w.Max)
	}
	if !w.Min.Before(now) || !now.Before(w.Max) {
		t.Errorf("expected min < now < max, got %v < %v < %v", w.Min, now, w.Max)
	}

	initial, min, max := w.PickerValues()
	if initial != "2025-03-01T10:00" {
		t.Errorf("unexpected initial picker value %q", initial)
	}
	if min != "2024-03-01T10:37" {
		t.Errorf("unexpected min picker value %q", min)
	}
	if max != "2026-03-01T10:37" {
		t.Errorf("unexpected max picker value %q", max)
	}

	initial, min, max = w.DateValues()
	if initial != "2025-03-01" || min != "2024-03-01" || max != "2026-03-01" {
		t.Errorf("unexpected date picker values %q %q %q", initial, min, max)
	}
}

func TestResolveIgnoresHostZone(t *testing.T) {
	r := New(nil)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := r.Resolve(now)
	b := r.Resolve(now.In(ny))
	if !a.Initial.Equal(b.Initial) || a.Initial.Location() != DefaultLocation {
		t.Errorf("expected zone-independent window, got %v and %v", a.Initial, b.Initial)
	}
}

func TestDayBucket(t *testing.T) {
	r := New(nil)
	at := time.Date(2025, 3, 1, 23, 59, 0, 0, DefaultLocation)

	start, end := r.DayBucket(at)

	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, DefaultLocation); !start.Equal(want) {
		t.Errorf("expected start %v, got %v", want, start)
	}
	if want := time.Date(2025, 3, 2, 0, 0, 0, 0, DefaultLocation); !end.Equal(want) {
		t.Errorf("expected end %v, got %v", want, end)
	}
}

func TestParsePickerDatetime(t *testing.T) {
	r := New(nil)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-03-01T10:00", time.Date(2025, 3, 1, 10, 0, 0, 0, DefaultLocation), false},
		{"2025-03-01T10:00:30", time.Date(2025, 3, 1, 10, 0, 30, 0, DefaultLocation), false},
		{"不明", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.ParsePickerDatetime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParsePickerDate(t *testing.T) {
	r := New(time.UTC)
	got, err := r.ParsePickerDate("2025-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 0 || got.Day() != 1 || got.Location() != r.Location() {
		t.Errorf("unexpected parsed date %v", got)
	}
	if _, err := r.ParsePickerDate("03/01/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestNew_NilSelectsDefaultLocation(t *testing.T) {
	if New(nil).Location() != DefaultLocation {
		t.Error("expected nil location to select DefaultLocation")
	}
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, DefaultLocation).Zone()
	if offset != 9*60*60 {
		t.Errorf("expected +9h offset, got %d", offset)
	}
}
