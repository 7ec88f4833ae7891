/*
Package engine provides the loan interest, penalty and amortization engine.

PURPOSE:
  This package turns a loan's immutable terms plus its transaction history
  into everything a branch employee or farmer asks about: interest owed for
  an exact number of days, penalty on an overdue amount, the EMI schedule,
  a bank-style ledger, the effect of a prepayment, and which scheme is
  cheapest for a given principal and tenure.

KEY CONCEPTS IN THIS FILE (types.go):
  - LoanType: the product (SAO, long-term EMI, Rythu schemes, Amul dairy)
  - Scheme: per-product configuration (rate tiers, method, max tenure)
  - LoanTerms: principal, tenure and disbursement date of one loan
  - Money helpers: rounding and percentage conversion on decimal.Decimal

DESIGN PRINCIPLES:
  1. Purity: every operation is a function of its inputs; no I/O, no clock
  2. Precision: decimal.Decimal for all money, rounded to paise at the edges
  3. Determinism: identical inputs always produce identical outputs
  4. Configuration over literals: rates come from an injectable SchemeTable

SEE ALSO:
  - rates.go: RateSchedule over a SchemeTable
  - accrual.go: day-accurate simple interest
  - amortization.go: EMI schedules
  - ledger.go: running-balance statement
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// =============================================================================
// LOAN TYPE
// =============================================================================

// LoanType identifies a loan product.
type LoanType string

const (
	LoanSAO          LoanType = "sao"
	LoanLongTermEMI  LoanType = "long_term_emi"
	LoanRythuBandhu  LoanType = "rythu_bandhu"
	LoanRythuNethany LoanType = "rythu_nethany"
	LoanAmul         LoanType = "amul_loan"
)

// AllLoanTypes lists the built-in products in display order.
func AllLoanTypes() []LoanType {
	return []LoanType{LoanSAO, LoanLongTermEMI, LoanRythuBandhu, LoanRythuNethany, LoanAmul}
}

// Method is how a scheme charges interest.
type Method string

const (
	MethodProRata Method = "prorata_daily" // bullet repayment, daily simple interest
	MethodEMI     Method = "emi"           // reducing-balance monthly installments
)

// =============================================================================
// SCHEME - Per-product configuration
// =============================================================================

// RateTier is one band of the rate schedule. UpToMonths is the length of the
// band measured from disbursement; zero marks the unbounded terminal tier.
type RateTier struct {
	UpToMonths int
	AnnualRate decimal.Decimal
}

// Bounded reports whether the tier has an end.
func (t RateTier) Bounded() bool { return t.UpToMonths > 0 }

// MaxElapsedDays is the inclusive elapsed-day bound of a bounded tier under
// Actual/365: twelve months is 365 days.
func (t RateTier) MaxElapsedDays() int {
	return t.UpToMonths * 365 / 12
}

// Scheme is the configuration of one loan product.
type Scheme struct {
	LoanType        LoanType
	DisplayName     string
	Method          Method
	Tiers           []RateTier
	MaxTenureMonths int
	// PenalRate is added to the year-one rate to get the overdue interest rate.
	PenalRate decimal.Decimal
}

// BaseRate is the rate of the first tier.
func (s Scheme) BaseRate() decimal.Decimal {
	if len(s.Tiers) == 0 {
		return decimal.Zero
	}
	return s.Tiers[0].AnnualRate
}

// TerminalRate is the rate of the unbounded tier.
func (s Scheme) TerminalRate() decimal.Decimal {
	if len(s.Tiers) == 0 {
		return decimal.Zero
	}
	return s.Tiers[len(s.Tiers)-1].AnnualRate
}

// TransitionMonths is the month count at which the rate switches, or zero
// when the scheme has a single flat rate.
func (s Scheme) TransitionMonths() int {
	for _, t := range s.Tiers {
		if t.Bounded() {
			return t.UpToMonths
		}
	}
	return 0
}

// OverdueRate is the annual rate charged on overdue amounts.
func (s Scheme) OverdueRate() decimal.Decimal {
	return s.BaseRate().Add(s.PenalRate)
}

// IsEMI reports whether the scheme repays in monthly installments.
func (s Scheme) IsEMI() bool { return s.Method == MethodEMI }

// =============================================================================
// LOAN TERMS
// =============================================================================

// LoanTerms are the immutable terms of one loan. DisbursementDate is the
// zero civil.Date until the loan is disbursed.
type LoanTerms struct {
	LoanType         LoanType
	Principal        decimal.Decimal
	TenureMonths     int
	DisbursementDate civil.Date
}

// IsDisbursed reports whether the disbursement date has been set.
func (t LoanTerms) IsDisbursed() bool {
	return t.DisbursementDate != civil.Date{}
}

// MaturityDate is the due date of the last installment.
func (t LoanTerms) MaturityDate() civil.Date {
	return calendar.AddMonths(t.DisbursementDate, t.TenureMonths)
}

func (t LoanTerms) validate() error {
	if !t.IsDisbursed() {
		return newError(KindInvalidInput, "loan has no disbursement date")
	}
	if !t.Principal.IsPositive() {
		return newError(KindInvalidInput, "principal must be positive, got %s", t.Principal)
	}
	if t.TenureMonths <= 0 {
		return newError(KindInvalidTenure, "tenure must be positive, got %d months", t.TenureMonths)
	}
	return nil
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

var (
	hundred      = decimal.NewFromInt(100)
	daysInYear   = decimal.NewFromInt(365)
	monthsInYear = decimal.NewFromInt(12)
)

// Round2 rounds to paise (two decimal places, half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns amount × rate/100.
func percentOf(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratePercent).Div(hundred)
}

// monthlyRate converts an annual percentage rate to a monthly fraction.
func monthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.Div(hundred).Div(monthsInYear)
}

func sumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
