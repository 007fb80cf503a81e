package domain

import (
	"strings"
	"time"
)

const (
	// DateLayout is the wire and storage format of a scheduled date.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire and storage format of a scheduled time.
	TimeLayout = "15:04"

	timeLayoutSeconds = "15:04:05"
)

// Slot is a fixed viewing time on a property. Two slots are equal only when
// date and time match exactly; durations are not modelled.
type Slot struct {
	Date string
	Time string
}

// ParseDate validates a calendar date and returns it in DateLayout.
func ParseDate(value string) (string, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return d.Format(DateLayout), true
}

// ParseTime validates a wall-clock time (HH:MM or HH:MM:SS) and returns it
// in TimeLayout. Seconds must be zero.
func ParseTime(value string) (string, bool) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		t, err = time.Parse(timeLayoutSeconds, value)
		if err != nil || t.Second() != 0 {
			return "", false
		}
	}
	return t.Format(TimeLayout), true
}

// ParseSlot validates and normalizes a date/time pair.
func ParseSlot(date, clock string) (Slot, bool) {
	d, ok := ParseDate(date)
	if !ok {
		return Slot{}, false
	}
	t, ok := ParseTime(clock)
	if !ok {
		return Slot{}, false
	}
	return Slot{Date: d, Time: t}, true
}

// At returns the instant the slot starts in loc.
func (s Slot) At(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
}

// String renders the slot as "2006-01-02 15:04".
func (s Slot) String() string {
	return s.Date + " " + s.Time
}
