/*
accrual.go - Day-accurate simple interest with mid-period rate switching

PURPOSE:
  Computes the interest a principal earns over a half-open date range
  [from, to). Interest is simple and non-compounding:

    interest = principal × rate/100 × days/365

  When the range straddles the rate boundary the range is split into
  exactly two periods, each billed at its own rate, and the rounded period
  amounts are summed.

EXAMPLE:
  SAO loan of 100000 disbursed 2024-01-01, accrued over
  [2024-01-01, 2025-02-01):

    2024-01-01 → 2025-01-01  366 days @ 7.00%   = 7019.18
    2025-01-01 → 2025-02-01   31 days @ 13.75%  = 1167.81
                                          total = 8186.99

ROUNDING:
  Each period rounds to paise; the total is the sum of rounded periods so
  the periods shown to a customer always add up to the total they pay.

SEE ALSO:
  - rates.go: where the boundary comes from
  - ledger.go: posts accrual results between transactions
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// AccrualPeriod is one stretch of days billed at a single rate.
type AccrualPeriod struct {
	Start    civil.Date
	End      civil.Date
	Days     int
	Rate     decimal.Decimal
	Interest decimal.Decimal
}

// AccrualResult is the outcome of accruing interest over a date range.
type AccrualResult struct {
	From                civil.Date
	To                  civil.Date
	Principal           decimal.Decimal
	TotalDays           int
	TotalInterest       decimal.Decimal
	Periods             []AccrualPeriod
	CrossesRateBoundary bool
}

// EffectiveRate is the rate of the last period, or zero for an empty range.
func (r AccrualResult) EffectiveRate() decimal.Decimal {
	if len(r.Periods) == 0 {
		return decimal.Zero
	}
	return r.Periods[len(r.Periods)-1].Rate
}

var interestDenominator = decimal.NewFromInt(100 * calendar.DaysInYear)

// SimpleInterest returns principal × rate/100 × days/365, rounded to paise.
func SimpleInterest(principal, annualRate decimal.Decimal, days int) decimal.Decimal {
	if days == 0 || principal.IsZero() {
		return decimal.Zero
	}
	return Round2(principal.Mul(annualRate).Mul(decimal.NewFromInt(int64(days))).Div(interestDenominator))
}

// Accrue computes interest on principal over [from, to) for a loan of the
// given type disbursed on disbursement.
func (rs *RateSchedule) Accrue(principal decimal.Decimal, loanType LoanType, disbursement, from, to civil.Date) (AccrualResult, error) {
	if calendar.IsZero(disbursement) {
		return AccrualResult{}, newError(KindInvalidInput, "loan has not been disbursed")
	}
	if principal.IsNegative() {
		return AccrualResult{}, newError(KindInvalidInput, "principal must not be negative, got %s", principal)
	}
	if to.Before(from) {
		return AccrualResult{}, newError(KindInvalidDateRange, "to date %s is before from date %s", to, from)
	}
	if from.Before(disbursement) {
		return AccrualResult{}, newError(KindInvalidDateRange,
			"from date %s is before disbursement on %s", from, disbursement)
	}
	if _, err := rs.schemes.Lookup(loanType); err != nil {
		return AccrualResult{}, err
	}

	result := AccrualResult{
		From:          from,
		To:            to,
		Principal:     principal,
		TotalInterest: decimal.Zero,
		Periods:       []AccrualPeriod{},
	}
	if from == to {
		return result, nil
	}

	boundary, hasBoundary, err := rs.BoundaryDate(loanType, disbursement)
	if err != nil {
		return AccrualResult{}, err
	}

	spans := [][2]civil.Date{{from, to}}
	if hasBoundary && from.Before(boundary) && boundary.Before(to) {
		spans = [][2]civil.Date{{from, boundary}, {boundary, to}}
		result.CrossesRateBoundary = true
	}

	for _, span := range spans {
		rate, err := rs.RateOn(loanType, disbursement, span[0])
		if err != nil {
			return AccrualResult{}, err
		}
		days := calendar.DaysBetween(span[0], span[1])
		period := AccrualPeriod{
			Start:    span[0],
			End:      span[1],
			Days:     days,
			Rate:     rate,
			Interest: SimpleInterest(principal, rate, days),
		}
		result.Periods = append(result.Periods, period)
		result.TotalDays += days
		result.TotalInterest = result.TotalInterest.Add(period.Interest)
	}
	return result, nil
}

// AccrueDays accrues interest for a number of days starting on from.
func (rs *RateSchedule) AccrueDays(principal decimal.Decimal, loanType LoanType, disbursement, from civil.Date, days int) (AccrualResult, error) {
	if days < 0 {
		return AccrualResult{}, newError(KindInvalidInput, "days must not be negative, got %d", days)
	}
	return rs.Accrue(principal, loanType, disbursement, from, from.AddDays(days))
}
