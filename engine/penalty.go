/*
penalty.go - Tiered penalty on overdue amounts

PURPOSE:
  When an installment or bullet repayment is late the borrower owes three
  things: the overdue amount itself, interest on it for the days it was
  late (at the overdue rate, the scheme's base rate plus the penal rate),
  and a flat penalty whose percentage depends on how late it is.

TIERS (boundary-inclusive):
  0-30 days    2%
  31-90 days   4%
  90+ days     6%

  The penalty is a flat percentage of the overdue amount. It is never
  compounded with the overdue interest.

SEE ALSO:
  - types.go: Scheme.OverdueRate
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// PenaltyTier is one bracket of the overdue schedule. MaxDays is inclusive;
// a negative MaxDays marks the unbounded last bracket.
type PenaltyTier struct {
	Label   string
	MaxDays int
	Rate    decimal.Decimal
}

// DefaultPenaltyTiers returns the 2/4/6 percent brackets.
func DefaultPenaltyTiers() []PenaltyTier {
	return []PenaltyTier{
		{Label: "0-30 days", MaxDays: 30, Rate: decimal.NewFromInt(2)},
		{Label: "31-90 days", MaxDays: 90, Rate: decimal.NewFromInt(4)},
		{Label: "90+ days", MaxDays: -1, Rate: decimal.NewFromInt(6)},
	}
}

// PenaltyResult breaks down what is owed on an overdue amount.
type PenaltyResult struct {
	OverdueAmount   decimal.Decimal
	OverdueDays     int
	TierLabel       string
	PenaltyRate     decimal.Decimal
	OverdueRate     decimal.Decimal
	OverdueInterest decimal.Decimal
	PenaltyAmount   decimal.Decimal
	TotalDue        decimal.Decimal
}

// SelectPenaltyTier returns the bracket containing overdueDays.
func SelectPenaltyTier(tiers []PenaltyTier, overdueDays int) (PenaltyTier, error) {
	if overdueDays < 0 {
		return PenaltyTier{}, newError(KindInvalidInput, "overdue days must not be negative, got %d", overdueDays)
	}
	for _, tier := range tiers {
		if tier.MaxDays < 0 || overdueDays <= tier.MaxDays {
			return tier, nil
		}
	}
	return PenaltyTier{}, newError(KindInvalidInput, "no penalty tier covers %d days", overdueDays)
}

// CalculatePenalty computes overdue interest and penalty using the default
// brackets. overdueRate is an annual percentage.
func CalculatePenalty(overdueAmount decimal.Decimal, overdueDays int, overdueRate decimal.Decimal) (PenaltyResult, error) {
	return CalculatePenaltyWithTiers(DefaultPenaltyTiers(), overdueAmount, overdueDays, overdueRate)
}

// CalculatePenaltyWithTiers is CalculatePenalty over a custom bracket list.
func CalculatePenaltyWithTiers(tiers []PenaltyTier, overdueAmount decimal.Decimal, overdueDays int, overdueRate decimal.Decimal) (PenaltyResult, error) {
	if !overdueAmount.IsPositive() {
		return PenaltyResult{}, newError(KindInvalidInput, "overdue amount must be positive, got %s", overdueAmount)
	}
	if overdueRate.IsNegative() {
		return PenaltyResult{}, newError(KindInvalidInput, "overdue rate must not be negative, got %s", overdueRate)
	}
	tier, err := SelectPenaltyTier(tiers, overdueDays)
	if err != nil {
		return PenaltyResult{}, err
	}

	interest := SimpleInterest(overdueAmount, overdueRate, overdueDays)
	penalty := Round2(percentOf(overdueAmount, tier.Rate))

	return PenaltyResult{
		OverdueAmount:   overdueAmount,
		OverdueDays:     overdueDays,
		TierLabel:       tier.Label,
		PenaltyRate:     tier.Rate,
		OverdueRate:     overdueRate,
		OverdueInterest: interest,
		PenaltyAmount:   penalty,
		TotalDue:        overdueAmount.Add(interest).Add(penalty),
	}, nil
}
