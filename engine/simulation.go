/*
simulation.go - What-if prepayments

PURPOSE:
  Answers "what happens if I pay X extra on date D?". The baseline is the
  loan's regular EMI schedule with every installment due on or before D
  assumed paid; the outstanding principal at D is the balance after the
  last of those installments.

MODES:
  - prepayment, reduce EMI: tenure stays, a lower EMI is solved for the
    reduced balance (re-amortizing again at month 13 if D is in year one)
  - prepayment, reduce tenure: the EMI of every position is held and the
    loan retires early
  - early_payment: always reduces the EMI

  Paying exactly the outstanding balance closes the loan: the new
  schedule is empty and every remaining rupee of interest is saved.

SEE ALSO:
  - amortization.go: schedulePlan, the row builder both modes share
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// PaymentType distinguishes the two simulated payment kinds.
type PaymentType string

const (
	PaymentPrepayment PaymentType = "prepayment"
	PaymentEarly      PaymentType = "early_payment"
)

// HypotheticalPayment is the extra payment being simulated.
type HypotheticalPayment struct {
	Amount decimal.Decimal
	Date   civil.Date
	Type   PaymentType
}

// SimulationResult compares the baseline schedule with the one after the
// hypothetical payment.
type SimulationResult struct {
	Payment             HypotheticalPayment
	ReduceEMI           bool
	InstallmentsPaid    int
	OutstandingBefore   decimal.Decimal
	OutstandingAfter    decimal.Decimal
	CurrentEMI          decimal.Decimal
	NewEMI              decimal.Decimal
	EMIReduction        decimal.Decimal
	RemainingMonths     int
	NewTenureMonths     int
	TenureReducedMonths int
	NewMaturityDate     civil.Date
	BaselineInterest    decimal.Decimal
	NewInterest         decimal.Decimal
	TotalInterestSaved  decimal.Decimal
	NewSchedule         []Installment
}

// Closed reports whether the payment retires the loan.
func (r SimulationResult) Closed() bool { return r.OutstandingAfter.IsZero() }

// Simulate applies a hypothetical payment to a loan's baseline schedule.
func (rs *RateSchedule) Simulate(terms LoanTerms, payment HypotheticalPayment, reduceEMI bool) (SimulationResult, error) {
	if err := terms.validate(); err != nil {
		return SimulationResult{}, err
	}
	if payment.Type != PaymentPrepayment && payment.Type != PaymentEarly {
		return SimulationResult{}, newError(KindInvalidInput, "unknown simulation type %q", payment.Type)
	}
	if !payment.Amount.IsPositive() {
		return SimulationResult{}, newError(KindInvalidInput, "payment amount must be positive, got %s", payment.Amount)
	}
	if payment.Date.Before(terms.DisbursementDate) {
		return SimulationResult{}, newError(KindInvalidDateRange,
			"payment date %s is before disbursement on %s", payment.Date, terms.DisbursementDate)
	}
	scheme, err := rs.schemes.Lookup(terms.LoanType)
	if err != nil {
		return SimulationResult{}, err
	}
	baseline, err := rs.Amortize(terms)
	if err != nil {
		return SimulationResult{}, err
	}

	paid := 0
	for paid < len(baseline) && !baseline[paid].DueDate.After(payment.Date) {
		paid++
	}
	outstanding := terms.Principal
	if paid > 0 {
		outstanding = baseline[paid-1].BalanceAfter
	}
	if payment.Amount.GreaterThan(outstanding) {
		return SimulationResult{}, &PaymentExceedsBalanceError{
			Requested:   payment.Amount.StringFixed(2),
			Outstanding: outstanding.StringFixed(2),
			On:          payment.Date.String(),
		}
	}

	if payment.Type == PaymentEarly {
		reduceEMI = true
	}
	plan := schedulePlan{
		rateYear1:    scheme.BaseRate(),
		rateAfter:    scheme.TerminalRate(),
		disbursement: terms.DisbursementDate,
		first:        paid + 1,
		last:         terms.TenureMonths,
	}
	if !reduceEMI {
		plan.fixedEMI = func(number int) (decimal.Decimal, bool) {
			if number-1 < len(baseline) {
				return baseline[number-1].EMI, true
			}
			return decimal.Zero, false
		}
	}
	after := outstanding.Sub(payment.Amount)
	remaining := baseline[paid:]
	revised := plan.build(after)

	result := SimulationResult{
		Payment:           payment,
		ReduceEMI:         reduceEMI,
		InstallmentsPaid:  paid,
		OutstandingBefore: outstanding,
		OutstandingAfter:  after,
		CurrentEMI:        decimal.Zero,
		NewEMI:            decimal.Zero,
		RemainingMonths:   len(remaining),
		NewTenureMonths:   paid + len(revised),
		NewMaturityDate:   payment.Date,
		BaselineInterest:  SummarizeSchedule(remaining).TotalInterest,
		NewInterest:       SummarizeSchedule(revised).TotalInterest,
		NewSchedule:       revised,
	}
	if len(remaining) > 0 {
		result.CurrentEMI = remaining[0].EMI
	}
	if len(revised) > 0 {
		result.NewEMI = revised[0].EMI
		result.NewMaturityDate = revised[len(revised)-1].DueDate
	}
	result.EMIReduction = result.CurrentEMI.Sub(result.NewEMI)
	result.TenureReducedMonths = terms.TenureMonths - result.NewTenureMonths
	result.TotalInterestSaved = result.BaselineInterest.Sub(result.NewInterest)
	return result, nil
}
