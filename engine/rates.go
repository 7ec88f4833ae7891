/*
rates.go - Rate schedule per loan type

PURPOSE:
  Answers "which annual rate applies to this loan on this day?". Each
  product has an ordered list of rate tiers measured from the disbursement
  date: the observed products all have two, e.g. SAO charges 7% for the
  first year and 13.75% after it.

TWO VIEWS OF THE SAME BOUNDARY:
  - Elapsed days (RateForElapsedDays): a 12-month tier covers elapsed days
    0..365 inclusive. Day 366 is the first day of the next tier.
  - Calendar (RateOn, BoundaryDate): derived from the elapsed-day view.
    The boundary is disbursement + 366 days for a 12-month tier, so a loan
    disbursed on 2024-01-01 switches on 2025-01-01 and one disbursed on
    2025-01-01 switches on 2026-01-02.

CONFIGURATION:
  The table is injected. DefaultSchemes() carries the products offered by
  the society today; factory.ParseSchemes builds one from JSON so a new
  product needs no engine change.

SEE ALSO:
  - types.go: Scheme and RateTier
  - factory/scheme.go: JSON scheme definitions
*/
package engine

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// =============================================================================
// SCHEME TABLE
// =============================================================================

// SchemeTable maps a loan type to its configuration.
type SchemeTable map[LoanType]Scheme

// Lookup returns the scheme for a loan type.
func (t SchemeTable) Lookup(loanType LoanType) (Scheme, error) {
	s, ok := t[loanType]
	if !ok || len(s.Tiers) == 0 {
		return Scheme{}, newError(KindUnknownLoanType, "no rate tiers configured for loan type %q", loanType)
	}
	return s, nil
}

// Sorted returns the schemes ordered by loan type.
func (t SchemeTable) Sorted() []Scheme {
	out := make([]Scheme, 0, len(t))
	for _, s := range t {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanType < out[j].LoanType })
	return out
}

// Validate checks the tier invariants of every scheme: ascending bounded
// tiers, at most one transition, exactly one unbounded terminal tier.
func (t SchemeTable) Validate() error {
	for lt, s := range t {
		if err := validateTiers(s.Tiers); err != nil {
			return fmt.Errorf("scheme %s: %w", lt, err)
		}
		if s.MaxTenureMonths <= 0 {
			return fmt.Errorf("scheme %s: %w", lt, newError(KindInvalidTenure, "max tenure must be positive"))
		}
	}
	return nil
}

func validateTiers(tiers []RateTier) error {
	if len(tiers) == 0 {
		return newError(KindInvalidInput, "at least one rate tier is required")
	}
	if len(tiers) > 2 {
		return newError(KindInvalidInput, "at most one rate transition is supported, got %d tiers", len(tiers))
	}
	for i, tier := range tiers {
		last := i == len(tiers)-1
		if tier.AnnualRate.IsNegative() {
			return newError(KindInvalidInput, "tier %d has negative rate %s", i, tier.AnnualRate)
		}
		if last && tier.Bounded() {
			return newError(KindInvalidInput, "last tier must be unbounded")
		}
		if !last && !tier.Bounded() {
			return newError(KindInvalidInput, "only the last tier may be unbounded")
		}
	}
	return nil
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultSchemes returns the products offered by the society.
func DefaultSchemes() SchemeTable {
	twoTier := func(base, after string) []RateTier {
		return []RateTier{
			{UpToMonths: 12, AnnualRate: pct(base)},
			{UpToMonths: 0, AnnualRate: pct(after)},
		}
	}
	penal := pct("2")
	return SchemeTable{
		LoanSAO: {
			LoanType:        LoanSAO,
			DisplayName:     "SAO (Short Term Agricultural Operation)",
			Method:          MethodProRata,
			Tiers:           twoTier("7", "13.75"),
			MaxTenureMonths: 12,
			PenalRate:       penal,
		},
		LoanLongTermEMI: {
			LoanType:        LoanLongTermEMI,
			DisplayName:     "Long Term EMI Loan",
			Method:          MethodEMI,
			Tiers:           twoTier("12", "12.75"),
			MaxTenureMonths: 108,
			PenalRate:       penal,
		},
		LoanRythuBandhu: {
			LoanType:        LoanRythuBandhu,
			DisplayName:     "Rythu Bandhu",
			Method:          MethodProRata,
			Tiers:           twoTier("12.5", "14.5"),
			MaxTenureMonths: 12,
			PenalRate:       penal,
		},
		LoanRythuNethany: {
			LoanType:        LoanRythuNethany,
			DisplayName:     "Rythu Nethany",
			Method:          MethodEMI,
			Tiers:           twoTier("12.5", "14.5"),
			MaxTenureMonths: 120,
			PenalRate:       penal,
		},
		LoanAmul: {
			LoanType:        LoanAmul,
			DisplayName:     "Amul Dairy Loan",
			Method:          MethodEMI,
			Tiers:           twoTier("12", "14"),
			MaxTenureMonths: 10,
			PenalRate:       penal,
		},
	}
}

// =============================================================================
// RATE SCHEDULE
// =============================================================================

// RateSchedule resolves rates from a SchemeTable.
type RateSchedule struct {
	schemes SchemeTable
}

// NewRateSchedule wraps a scheme table.
func NewRateSchedule(schemes SchemeTable) *RateSchedule {
	return &RateSchedule{schemes: schemes}
}

// Schemes exposes the underlying table.
func (rs *RateSchedule) Schemes() SchemeTable { return rs.schemes }

// Scheme returns the configuration for a loan type.
func (rs *RateSchedule) Scheme(loanType LoanType) (Scheme, error) {
	return rs.schemes.Lookup(loanType)
}

// RateForElapsedDays returns the annual rate (percent) in force after the
// given number of days since disbursement.
func (rs *RateSchedule) RateForElapsedDays(loanType LoanType, elapsedDays int) (decimal.Decimal, error) {
	scheme, err := rs.schemes.Lookup(loanType)
	if err != nil {
		return decimal.Zero, err
	}
	if elapsedDays < 0 {
		return decimal.Zero, newError(KindInvalidInput, "elapsed days must not be negative, got %d", elapsedDays)
	}
	for _, tier := range scheme.Tiers {
		if !tier.Bounded() || elapsedDays <= tier.MaxElapsedDays() {
			return tier.AnnualRate, nil
		}
	}
	return scheme.TerminalRate(), nil
}

// BoundaryDate returns the first day of the terminal tier: the day after the
// last elapsed day of the first bounded tier. ok is false for flat-rate
// schemes.
func (rs *RateSchedule) BoundaryDate(loanType LoanType, disbursement civil.Date) (boundary civil.Date, ok bool, err error) {
	scheme, err := rs.schemes.Lookup(loanType)
	if err != nil {
		return civil.Date{}, false, err
	}
	for _, tier := range scheme.Tiers {
		if tier.Bounded() {
			return calendar.AddDays(disbursement, tier.MaxElapsedDays()+1), true, nil
		}
	}
	return civil.Date{}, false, nil
}

// RateOn returns the annual rate in force on a calendar date. It agrees with
// RateForElapsedDays for the days elapsed since disbursement.
func (rs *RateSchedule) RateOn(loanType LoanType, disbursement, on civil.Date) (decimal.Decimal, error) {
	if _, err := rs.schemes.Lookup(loanType); err != nil {
		return decimal.Zero, err
	}
	if on.Before(disbursement) {
		return decimal.Zero, newError(KindInvalidDateRange, "%s is before disbursement on %s", on, disbursement)
	}
	return rs.RateForElapsedDays(loanType, calendar.DaysBetween(disbursement, on))
}
