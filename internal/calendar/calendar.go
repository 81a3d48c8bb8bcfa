// Package calendar holds the date-only arithmetic used for leases and rent.
//
// A "date" here is a time.Time at midnight UTC. Values built through this
// package compare correctly with == and can be used as map keys.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format for dates.
const Layout = "2006-01-02"

// Day truncates t to its calendar date in t's own location and returns it
// as midnight UTC.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a date without normalising overflowing days.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp (truncated to its date).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("calendar: invalid date %q", s)
}

// Format renders a date as YYYY-MM-DD, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(Layout)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDate returns day in the given month, falling back to the month's last
// day when the month is too short (31 in April is April 30).
func DueDate(year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date(year, month, day)
}

// LastDue returns the most recent due date on or before today for rent due
// on dueDay of every month.
func LastDue(today time.Time, dueDay int) time.Time {
	today = Day(today)
	thisMonth := DueDate(today.Year(), today.Month(), dueDay)
	if !today.Before(thisMonth) {
		return thisMonth
	}
	prev := Date(today.Year(), today.Month()-1, 1)
	return DueDate(prev.Year(), prev.Month(), dueDay)
}

// AddDays returns d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return Day(d).AddDate(0, 0, n)
}

// Within reports whether from <= d <= to.
func Within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// OnOrBefore reports whether d is set and not after ref.
func OnOrBefore(d *time.Time, ref time.Time) bool {
	return d != nil && !d.IsZero() && !Day(*d).After(Day(ref))
}

// ParseTimestamp accepts an RFC 3339 timestamp or a bare date. Unlike
// ParseDate it keeps the time of day, and the offset as written, so Day
// yields the writer's calendar day.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("calendar: invalid timestamp %q", s)
}
