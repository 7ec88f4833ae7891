package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// =============================================================================
// CLOCK - "today" is an input, not a global
// =============================================================================

// Clock supplies the current instant. Handlers and the accrual scheduler
// take one so that "as of today" calculations are reproducible in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FixedDate is a FixedClock pinned to midnight UTC of d.
func FixedDate(d civil.Date) FixedClock {
	return FixedClock{At: d.In(time.UTC)}
}

// Today returns the calendar date of the clock's current instant.
func Today(c Clock) civil.Date {
	if c == nil {
		c = SystemClock{}
	}
	return civil.DateOf(c.Now())
}
