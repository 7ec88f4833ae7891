/*
Package calendar provides day-granular date arithmetic for interest accrual.

PURPOSE:
  Every calculation in the engine works on calendar dates, never on
  instants. A loan is disbursed on a day, interest accrues per day, an
  installment falls due on a day. This package wraps civil.Date with the
  handful of operations the engine needs so no caller ever touches
  time.Time arithmetic (and its time-zone surprises) directly.

DAY-COUNT CONVENTION:
  Actual/365 fixed. DaysBetween returns the actual number of calendar days
  in the half-open range [from, to). The year length used to turn an
  annual rate into a daily one is always 365, including in leap years.

MONTH STEPPING:
  AddMonths follows Go's time normalisation: Jan 31 + 1 month is Mar 2
  (or Mar 3 in a non-leap year). Installment due dates are always derived
  from the disbursement date, never chained month to month, so the
  normalisation never accumulates drift.

SEE ALSO:
  - engine/accrual.go: splits accrual ranges on rate anniversaries
  - engine/amortization.go: installment due dates
*/
package calendar

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DaysInYear is the fixed denominator of the Actual/365 convention.
const DaysInYear = 365

// ISOLayout is the wire format for dates.
const ISOLayout = "2006-01-02"

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewDate builds a civil.Date. Out-of-range days are normalised the way
// time.Date normalises them.
func NewDate(year int, month time.Month, day int) civil.Date {
	return civil.DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// MustParseDate is ParseDate for tests and static tables.
func MustParseDate(s string) civil.Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero civil.Date (unset).
func IsZero(d civil.Date) bool {
	return d == civil.Date{}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

// DaysBetween returns to - from in days. Negative when to is before from.
func DaysBetween(from, to civil.Date) int {
	return to.DaysSince(from)
}

// AddDays returns d shifted by n days.
func AddDays(d civil.Date, n int) civil.Date {
	return d.AddDays(n)
}

// AddMonths returns d shifted by n calendar months.
func AddMonths(d civil.Date, n int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(0, n, 0))
}

// Anniversary returns the date the given number of months after start.
// Rate tiers expire on this date: the day itself already belongs to the
// next tier.
func Anniversary(start civil.Date, months int) civil.Date {
	return AddMonths(start, months)
}

// =============================================================================
// COMPARISON
// =============================================================================

func BeforeOrEqual(a, b civil.Date) bool { return !a.After(b) }
func AfterOrEqual(a, b civil.Date) bool  { return !a.Before(b) }

func Min(a, b civil.Date) civil.Date {
	if a.Before(b) {
		return a
	}
	return b
}

func Max(a, b civil.Date) civil.Date {
	if a.After(b) {
		return a
	}
	return b
}

// Format renders d in the human format used in explanations (02-Jan-2006).
func Format(d civil.Date) string {
	return d.In(time.UTC).Format("02-Jan-2006")
}
