package property

import (
	"time"

	"github.com/starford/nspace/internal/calendar"
)

// Clock supplies "today" for calls that do not pass a reference date.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Today returns the current calendar date in c.Location (UTC if unset).
func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return calendar.Day(time.Now().In(loc))
}

// FixedClock always returns the same date.
type FixedClock time.Time

// Today returns the fixed date.
func (c FixedClock) Today() time.Time { return calendar.Day(time.Time(c)) }
