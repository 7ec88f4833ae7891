/*
compare.go - Side-by-side scheme comparison

PURPOSE:
  For a principal and tenure, prices every requested scheme the way it
  would actually be repaid and picks the cheapest one the borrower is
  eligible for.

PRICING:
  - EMI schemes: full amortization schedule (with month-13 re-amortization)
  - Pro-rata schemes: a single bullet repayment at the end of the tenure,
    interest accrued day by day with the rate switch on day 366

  Every result also carries the pro-rata accrual figure so the two
  methods can be compared on the same footing.

EARLY CLOSURE:
  For EMI schemes longer than a year the comparison shows what closing
  after 12 months costs: a 12-month schedule at the year-one rate. The
  saving is the full-tenure interest minus the 12-month interest.

ELIGIBILITY:
  A tenure beyond a scheme's maximum makes it ineligible. Ineligible and
  unknown schemes are still reported, with a reason, but never chosen.
*/
package engine

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// EarlyClosure prices closing an EMI loan after its first year.
type EarlyClosure struct {
	Months        int
	EMI           decimal.Decimal
	TotalInterest decimal.Decimal
	TotalPayment  decimal.Decimal
	Savings       decimal.Decimal
}

// SchemeComparison is one priced scheme.
type SchemeComparison struct {
	LoanType        LoanType
	DisplayName     string
	Method          Method
	BaseRate        decimal.Decimal
	RateAfterYear   decimal.Decimal
	EMIAmount       decimal.Decimal
	TotalInterest   decimal.Decimal
	TotalPayment    decimal.Decimal
	ProRataInterest decimal.Decimal
	EarlyClosure    *EarlyClosure
	Eligible        bool
	Reason          string
}

// Comparison is the outcome of Compare.
type Comparison struct {
	Principal      decimal.Decimal
	TenureMonths   int
	StartDate      civil.Date
	Results        []SchemeComparison
	BestScheme     *SchemeComparison
	Recommendation string
}

// EarlyClosureOptions lists the results that carry an early-closure price.
func (c Comparison) EarlyClosureOptions() []SchemeComparison {
	out := []SchemeComparison{}
	for _, r := range c.Results {
		if r.EarlyClosure != nil {
			out = append(out, r)
		}
	}
	return out
}

// Compare prices each loan type for a loan disbursed on start.
func (rs *RateSchedule) Compare(principal decimal.Decimal, tenureMonths int, loanTypes []LoanType, start civil.Date) (Comparison, error) {
	if !principal.IsPositive() {
		return Comparison{}, newError(KindInvalidInput, "principal must be positive, got %s", principal)
	}
	if tenureMonths <= 0 {
		return Comparison{}, newError(KindInvalidTenure, "tenure must be positive, got %d months", tenureMonths)
	}
	if len(loanTypes) == 0 {
		return Comparison{}, newError(KindInvalidInput, "at least one loan type is required")
	}
	if calendar.IsZero(start) {
		return Comparison{}, newError(KindInvalidInput, "comparison start date is required")
	}

	cmp := Comparison{
		Principal:    principal,
		TenureMonths: tenureMonths,
		StartDate:    start,
		Results:      make([]SchemeComparison, 0, len(loanTypes)),
	}
	for _, lt := range loanTypes {
		result, err := rs.priceScheme(principal, tenureMonths, lt, start)
		if err != nil {
			return Comparison{}, err
		}
		cmp.Results = append(cmp.Results, result)
	}

	for i := range cmp.Results {
		r := &cmp.Results[i]
		if !r.Eligible {
			continue
		}
		if cmp.BestScheme == nil || r.TotalPayment.LessThan(cmp.BestScheme.TotalPayment) {
			cmp.BestScheme = r
		}
	}
	cmp.Recommendation = recommend(cmp)
	return cmp, nil
}

func (rs *RateSchedule) priceScheme(principal decimal.Decimal, tenureMonths int, lt LoanType, start civil.Date) (SchemeComparison, error) {
	scheme, err := rs.schemes.Lookup(lt)
	if err != nil {
		return SchemeComparison{
			LoanType:        lt,
			DisplayName:     string(lt),
			EMIAmount:       decimal.Zero,
			TotalInterest:   decimal.Zero,
			TotalPayment:    decimal.Zero,
			ProRataInterest: decimal.Zero,
			Reason:          "unknown loan type",
		}, nil
	}

	result := SchemeComparison{
		LoanType:      lt,
		DisplayName:   scheme.DisplayName,
		Method:        scheme.Method,
		BaseRate:      scheme.BaseRate(),
		RateAfterYear: scheme.TerminalRate(),
		EMIAmount:     decimal.Zero,
		Eligible:      true,
	}
	if tenureMonths > scheme.MaxTenureMonths {
		result.Eligible = false
		result.Reason = fmt.Sprintf("tenure of %d months exceeds the %d month maximum", tenureMonths, scheme.MaxTenureMonths)
	}

	accrual, err := rs.Accrue(principal, lt, start, start, calendar.AddMonths(start, tenureMonths))
	if err != nil {
		return SchemeComparison{}, err
	}
	result.ProRataInterest = accrual.TotalInterest

	if !scheme.IsEMI() {
		result.TotalInterest = accrual.TotalInterest
		result.TotalPayment = principal.Add(accrual.TotalInterest)
		return result, nil
	}

	schedule, err := GenerateSchedule(principal, scheme.BaseRate(), scheme.TerminalRate(), tenureMonths, start)
	if err != nil {
		return SchemeComparison{}, err
	}
	summary := SummarizeSchedule(schedule)
	result.EMIAmount = summary.FirstEMI
	result.TotalInterest = summary.TotalInterest
	result.TotalPayment = summary.TotalPayment

	if tenureMonths > rateTransitionMonth {
		closing, err := GenerateSchedule(principal, scheme.BaseRate(), scheme.BaseRate(), rateTransitionMonth, start)
		if err != nil {
			return SchemeComparison{}, err
		}
		cs := SummarizeSchedule(closing)
		result.EarlyClosure = &EarlyClosure{
			Months:        rateTransitionMonth,
			EMI:           cs.FirstEMI,
			TotalInterest: cs.TotalInterest,
			TotalPayment:  cs.TotalPayment,
			Savings:       summary.TotalInterest.Sub(cs.TotalInterest),
		}
	}
	return result, nil
}

func recommend(cmp Comparison) string {
	best := cmp.BestScheme
	if best == nil {
		return fmt.Sprintf("No requested scheme allows a tenure of %d months.", cmp.TenureMonths)
	}
	msg := fmt.Sprintf("%s has the lowest total repayment of Rs. %s (interest Rs. %s).",
		best.DisplayName, best.TotalPayment.StringFixed(2), best.TotalInterest.StringFixed(2))
	if best.EarlyClosure != nil && best.EarlyClosure.Savings.IsPositive() {
		msg += fmt.Sprintf(" Closing it within %d months would save Rs. %s in interest.",
			best.EarlyClosure.Months, best.EarlyClosure.Savings.StringFixed(2))
	}
	return msg
}
