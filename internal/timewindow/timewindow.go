// Package timewindow computes the reference times used by the datetime picker
// and the calendar-day buckets used to group schedule entries.
//
// All values are anchored to a fixed-offset zone (UTC+9 by default) and never
// to the host's local zone.
package timewindow

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PickerLayout is the datetime format exchanged with the LINE picker.
	PickerLayout = "2006-01-02T15:04"
	// PickerLayoutSeconds is accepted on input for pickers that report seconds.
	PickerLayoutSeconds = "2006-01-02T15:04:05"
	// DateLayout is the format of date-only picker selections.
	DateLayout = "2006-01-02"
	// PickerRange is how far the picker reaches into the past and the future.
	PickerRange = 365 * 24 * time.Hour
)

// DefaultLocation is the fixed UTC+9 zone the bot operates in.
var DefaultLocation = time.FixedZone("JST", 9*60*60)

// Window holds the initial, earliest and latest selectable picker values.
type Window struct {
	Initial time.Time
	Min     time.Time
	Max     time.Time
}

// PickerValues returns Initial, Min and Max formatted for the picker.
func (w Window) PickerValues() (initial, min, max string) {
	return w.Initial.Format(PickerLayout), w.Min.Format(PickerLayout), w.Max.Format(PickerLayout)
}

// DateValues returns Initial, Min and Max formatted for a date-only picker.
func (w Window) DateValues() (initial, min, max string) {
	return w.Initial.Format(DateLayout), w.Min.Format(DateLayout), w.Max.Format(DateLayout)
}

// Resolver converts instants into picker windows and day buckets in a fixed zone.
type Resolver struct {
	loc *time.Location
}

// New creates a Resolver for loc. A nil loc selects DefaultLocation.
func New(loc *time.Location) *Resolver {
	if loc == nil {
		loc = DefaultLocation
	}
	return &Resolver{loc: loc}
}

// Location returns the zone the resolver works in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the picker window for now: the current hour as the initial
// value and one year either side as the bounds.
func (r *Resolver) Resolve(now time.Time) Window {
	local := now.In(r.loc)
	return Window{
		Initial: time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, r.loc),
		Min:     local.Add(-PickerRange),
		Max:     local.Add(PickerRange),
	}
}

// DayBucket returns the half-open interval [00:00, next 00:00) of t's calendar day.
func (r *Resolver) DayBucket(t time.Time) (start, end time.Time) {
	local := t.In(r.loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
	return start, start.AddDate(0, 0, 1)
}

// ParsePickerDatetime parses a picker datetime as a wall clock in the resolver zone.
func (r *Resolver) ParsePickerDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := PickerLayout
	if len(s) > len(PickerLayout) {
		layout = PickerLayoutSeconds
	}
	t, err := time.ParseInLocation(layout, s, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid picker datetime %q: %w", s, err)
	}
	return t, nil
}

// ParsePickerDate parses a date-only picker selection as midnight in the resolver zone.
func (r *Resolver) ParsePickerDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid picker date %q: %w", s, err)
	}
	return t, nil
}
