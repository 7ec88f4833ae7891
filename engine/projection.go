/*
projection.go - Payable amounts at upcoming dates

PURPOSE:
  Tells a borrower what it would take to close the loan today, tomorrow,
  in ten days and in a month. Each figure is the ledger balance as of that
  date: principal still owed plus interest accrued and not yet paid.

  The dates are half-open like every other range in the engine: "as of
  tomorrow" includes interest for today.

SEE ALSO:
  - ledger.go: Build with LedgerOptions.AsOf
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ProjectionPoint is the payable position on one date.
type ProjectionPoint struct {
	Label                string
	Date                 civil.Date
	DaysFromToday        int
	PrincipalOutstanding decimal.Decimal
	InterestOutstanding  decimal.Decimal
	TotalPayable         decimal.Decimal
}

// Projection is a set of points starting at today.
type Projection struct {
	Today  civil.Date
	Points []ProjectionPoint
}

// Point returns the projection with the given label.
func (p Projection) Point(label string) (ProjectionPoint, bool) {
	for _, pt := range p.Points {
		if pt.Label == label {
			return pt, true
		}
	}
	return ProjectionPoint{}, false
}

// Projection labels.
const (
	ProjectToday     = "today"
	ProjectTomorrow  = "tomorrow"
	ProjectTenDays   = "in_10_days"
	ProjectNextMonth = "next_month"
)

var projectionOffsets = []struct {
	label string
	days  int
}{
	{ProjectToday, 0},
	{ProjectTomorrow, 1},
	{ProjectTenDays, 10},
	{ProjectNextMonth, 30},
}

// Project computes the payable amount at today and three later dates.
func (rs *RateSchedule) Project(terms LoanTerms, txs []Transaction, today civil.Date) (Projection, error) {
	out := Projection{Today: today, Points: make([]ProjectionPoint, 0, len(projectionOffsets))}
	for _, off := range projectionOffsets {
		at := today.AddDays(off.days)
		ledger, err := rs.Build(terms, txs, LedgerOptions{AsOf: &at})
		if err != nil {
			return Projection{}, err
		}
		out.Points = append(out.Points, ProjectionPoint{
			Label:                off.label,
			Date:                 at,
			DaysFromToday:        off.days,
			PrincipalOutstanding: ledger.Summary.PrincipalOutstanding,
			InterestOutstanding:  ledger.Summary.InterestOutstanding,
			TotalPayable:         ledger.Summary.CurrentBalance,
		})
	}
	return out, nil
}
