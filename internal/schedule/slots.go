// Package schedule holds the clinic day's slot catalog and the calendar-day
// arithmetic used by booking and availability.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var catalog = []string{
	"9:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"1:00 PM",
	"2:00 PM",
	"3:00 PM",
	"4:00 PM",
	"5:00 PM",
}

// Catalog returns the bookable slot labels of a clinic day in canonical order.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// IsValid reports whether slot is one of the catalog labels.
func IsValid(slot string) bool {
	for _, s := range catalog {
		if s == slot {
			return true
		}
	}
	return false
}

// Available returns the catalog minus booked, in catalog order. The result is
// never nil so a fully booked day encodes as an empty JSON array.
func Available(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	available := make([]string, 0, len(catalog))
	for _, s := range catalog {
		if _, ok := taken[s]; !ok {
			available = append(available, s)
		}
	}
	return available
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar day at
// midnight UTC. For timestamps the day is taken in the timestamp's own offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}

	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Day(t), nil
}

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the half-open interval [start, end) covering the day of d.
func DayBounds(d time.Time) (time.Time, time.Time) {
	start := Day(d)
	return start, start.AddDate(0, 0, 1)
}

// FormatDate renders a day the way it is stored and exchanged.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}
