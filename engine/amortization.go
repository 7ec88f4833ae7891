/*
amortization.go - Reducing-balance EMI schedules

PURPOSE:
  Splits a loan into equated monthly installments. Each installment pays
  the month's interest on the outstanding balance; the rest of the EMI
  retires principal:

    r   = annual rate / 1200
    EMI = P × r × (1+r)^n / ((1+r)^n − 1)

RE-AMORTIZATION:
  The schemes charge one rate for the first year and another after it.
  Months 1-12 use the EMI computed at the year-one rate over the full
  tenure. At month 13 a new EMI is computed on the balance still owed, over
  the months still left, at the post-year rate. A 24-month loan therefore
  has two distinct EMI amounts.

ROUNDING:
  EMI and interest are rounded to paise. The final installment takes
  whatever principal is left, so the balance lands on exactly zero and the
  principal components add up to the loan amount.

SEE ALSO:
  - simulation.go: reuses the same row builder for prepayments
  - snapshot.go: overlays payments on a schedule
*/
package engine

import (
	"math"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// rateTransitionMonth is the last installment billed at the year-one rate.
const rateTransitionMonth = 12

// InstallmentStatus tracks repayment of one installment.
type InstallmentStatus string

const (
	StatusPending InstallmentStatus = "pending"
	StatusPaid    InstallmentStatus = "paid"
	StatusPartial InstallmentStatus = "partial"
	StatusOverdue InstallmentStatus = "overdue"
)

// Installment is one row of an amortization schedule.
type Installment struct {
	Number         int
	DueDate        civil.Date
	Rate           decimal.Decimal
	OpeningBalance decimal.Decimal
	EMI            decimal.Decimal
	Principal      decimal.Decimal
	Interest       decimal.Decimal
	BalanceAfter   decimal.Decimal
	PaidAmount     decimal.Decimal
	Status         InstallmentStatus
}

// ScheduleSummary totals a schedule.
type ScheduleSummary struct {
	Installments   int
	FirstEMI       decimal.Decimal
	EMIAfterYear   decimal.Decimal
	TotalPrincipal decimal.Decimal
	TotalInterest  decimal.Decimal
	TotalPayment   decimal.Decimal
}

// EMI returns the installment that retires principal over months at the
// given annual rate, rounded to paise.
func EMI(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	if annualRate.IsZero() {
		return Round2(principal.Div(decimal.NewFromInt(int64(months))))
	}
	// The power runs in float64; money goes back to decimal immediately.
	r := monthlyRate(annualRate).InexactFloat64()
	factor := math.Pow(1+r, float64(months))
	payment := principal.InexactFloat64() * r * factor / (factor - 1)
	return Round2(decimal.NewFromFloat(payment))
}

// GenerateSchedule builds the full EMI schedule for a loan. Installment k
// falls due k months after disbursement.
func GenerateSchedule(principal, rateYear1, rateAfterYear1 decimal.Decimal, tenureMonths int, disbursement civil.Date) ([]Installment, error) {
	if tenureMonths <= 0 {
		return nil, newError(KindInvalidTenure, "tenure must be positive, got %d months", tenureMonths)
	}
	if !principal.IsPositive() {
		return nil, newError(KindInvalidInput, "principal must be positive, got %s", principal)
	}
	if rateYear1.IsNegative() || rateAfterYear1.IsNegative() {
		return nil, newError(KindInvalidInput, "rates must not be negative")
	}
	if calendar.IsZero(disbursement) {
		return nil, newError(KindInvalidInput, "loan has not been disbursed")
	}

	plan := schedulePlan{
		rateYear1:    rateYear1,
		rateAfter:    rateAfterYear1,
		disbursement: disbursement,
		first:        1,
		last:         tenureMonths,
	}
	return plan.build(principal), nil
}

// Amortize generates the schedule for a loan using its scheme's rates.
func (rs *RateSchedule) Amortize(terms LoanTerms) ([]Installment, error) {
	scheme, err := rs.schemes.Lookup(terms.LoanType)
	if err != nil {
		return nil, err
	}
	return GenerateSchedule(terms.Principal, scheme.BaseRate(), scheme.TerminalRate(), terms.TenureMonths, terms.DisbursementDate)
}

// SummarizeSchedule totals principal, interest and payments.
func SummarizeSchedule(schedule []Installment) ScheduleSummary {
	summary := ScheduleSummary{
		Installments:   len(schedule),
		FirstEMI:       decimal.Zero,
		EMIAfterYear:   decimal.Zero,
		TotalPrincipal: decimal.Zero,
		TotalInterest:  decimal.Zero,
		TotalPayment:   decimal.Zero,
	}
	for i, inst := range schedule {
		if i == 0 {
			summary.FirstEMI = inst.EMI
		}
		if inst.Number == rateTransitionMonth+1 {
			summary.EMIAfterYear = inst.EMI
		}
		summary.TotalPrincipal = summary.TotalPrincipal.Add(inst.Principal)
		summary.TotalInterest = summary.TotalInterest.Add(inst.Interest)
		summary.TotalPayment = summary.TotalPayment.Add(inst.EMI)
	}
	return summary
}

// =============================================================================
// SCHEDULE PLAN - shared by fresh schedules and prepayment simulations
// =============================================================================

// schedulePlan describes installments first..last of a loan. When fixedEMI
// is set the EMI of each position is held and the schedule ends as soon as
// the balance is retired. Otherwise the tenure is kept: a balance retired
// early by paise rounding leaves zero installments up to last.
type schedulePlan struct {
	rateYear1    decimal.Decimal
	rateAfter    decimal.Decimal
	disbursement civil.Date
	first        int
	last         int
	fixedEMI     func(number int) (decimal.Decimal, bool)
}

func (p schedulePlan) rateFor(number int) decimal.Decimal {
	if number <= rateTransitionMonth {
		return p.rateYear1
	}
	return p.rateAfter
}

func (p schedulePlan) build(opening decimal.Decimal) []Installment {
	if !opening.IsPositive() || p.last < p.first {
		return []Installment{}
	}
	schedule := make([]Installment, 0, p.last-p.first+1)
	balance := opening
	emi := EMI(balance, p.rateFor(p.first), p.last-p.first+1)

	k := p.first
	for ; k <= p.last && balance.IsPositive(); k++ {
		if k == rateTransitionMonth+1 && k != p.first {
			emi = EMI(balance, p.rateAfter, p.last-k+1)
		}
		rowEMI := emi
		if p.fixedEMI != nil {
			if held, ok := p.fixedEMI(k); ok {
				rowEMI = held
			}
		}

		rate := p.rateFor(k)
		interest := Round2(balance.Mul(monthlyRate(rate)))
		principalPart := rowEMI.Sub(interest)
		if principalPart.IsNegative() {
			principalPart = decimal.Zero
		}
		if k == p.last || principalPart.GreaterThanOrEqual(balance) {
			principalPart = balance
			rowEMI = principalPart.Add(interest)
		}
		after := balance.Sub(principalPart)

		schedule = append(schedule, Installment{
			Number:         k,
			DueDate:        calendar.AddMonths(p.disbursement, k),
			Rate:           rate,
			OpeningBalance: balance,
			EMI:            rowEMI,
			Principal:      principalPart,
			Interest:       interest,
			BalanceAfter:   after,
			PaidAmount:     decimal.Zero,
			Status:         StatusPending,
		})
		balance = after
	}
	if p.fixedEMI != nil {
		return schedule
	}
	for ; k <= p.last; k++ {
		schedule = append(schedule, Installment{
			Number:         k,
			DueDate:        calendar.AddMonths(p.disbursement, k),
			Rate:           p.rateFor(k),
			OpeningBalance: decimal.Zero,
			EMI:            decimal.Zero,
			Principal:      decimal.Zero,
			Interest:       decimal.Zero,
			BalanceAfter:   decimal.Zero,
			PaidAmount:     decimal.Zero,
			Status:         StatusPending,
		})
	}
	return schedule
}
