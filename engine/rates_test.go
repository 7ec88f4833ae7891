package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
)

func TestRateForElapsedDays_SAO(t *testing.T) {
	rates := newRates()
	tests := []struct {
		days int
		want string
	}{
		{0, "7"},
		{180, "7"},
		{365, "7"},
		{366, "13.75"},
		{1000, "13.75"},
	}
	for _, tt := range tests {
		got, err := rates.RateForElapsedDays(engine.LoanSAO, tt.days)
		require.NoError(t, err)
		assert.True(t, dec(tt.want).Equal(got), "day %d: got %s want %s", tt.days, got, tt.want)
	}
}

func TestRateForElapsedDays_Errors(t *testing.T) {
	rates := newRates()

	_, err := rates.RateForElapsedDays(engine.LoanType("gold"), 10)
	assert.True(t, errors.Is(err, engine.ErrUnknownLoanType))
	assert.Equal(t, engine.KindUnknownLoanType, engine.KindOf(err))

	_, err = rates.RateForElapsedDays(engine.LoanSAO, -1)
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
}

func TestRateOn_SwitchesOnDay366(t *testing.T) {
	// GIVEN: SAO loan disbursed on 2024-01-01
	// WHEN: Asking for the rate on elapsed days 365 and 366
	// THEN: The switch happens on 2025-01-01 (day 366)

	rates := newRates()
	disbursed := date("2024-01-01")

	before, err := rates.RateOn(engine.LoanSAO, disbursed, date("2024-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "7.00", money(before))

	on, err := rates.RateOn(engine.LoanSAO, disbursed, date("2025-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "13.75", money(on))

	boundary, ok, err := rates.BoundaryDate(engine.LoanSAO, disbursed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2025-01-01", boundary.String())

	_, err = rates.RateOn(engine.LoanSAO, disbursed, date("2023-12-31"))
	assert.True(t, errors.Is(err, engine.ErrInvalidDateRange))
}

func TestRateOn_NonLeapYearMatchesElapsedDays(t *testing.T) {
	// GIVEN: SAO loan disbursed on 2025-01-01 (the anniversary is elapsed day 365)
	// WHEN: Comparing RateOn with RateForElapsedDays around the switch
	// THEN: Both agree; 2026-01-01 is still billed at 7% and the switch is 2026-01-02

	rates := newRates()
	disbursed := date("2025-01-01")

	for days := 360; days <= 370; days++ {
		byDays, err := rates.RateForElapsedDays(engine.LoanSAO, days)
		require.NoError(t, err)
		byDate, err := rates.RateOn(engine.LoanSAO, disbursed, disbursed.AddDays(days))
		require.NoError(t, err)
		assert.True(t, byDays.Equal(byDate), "day %d: %s vs %s", days, byDays, byDate)
	}

	boundary, ok, err := rates.BoundaryDate(engine.LoanSAO, disbursed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-01-02", boundary.String())

	res, err := rates.Accrue(dec("100000"), engine.LoanSAO, disbursed, disbursed, date("2026-01-02"))
	require.NoError(t, err)
	assert.False(t, res.CrossesRateBoundary)
	require.Len(t, res.Periods, 1)
	assert.Equal(t, 366, res.TotalDays)
	assert.Equal(t, "7.00", money(res.Periods[0].Rate))
	assert.Equal(t, "7019.18", money(res.TotalInterest))
}

func TestSchemeTable_Validate(t *testing.T) {
	require.NoError(t, engine.DefaultSchemes().Validate())

	bad := engine.SchemeTable{
		"flat": {
			LoanType:        "flat",
			Tiers:           []engine.RateTier{{UpToMonths: 12, AnnualRate: dec("5")}},
			MaxTenureMonths: 12,
		},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
	assert.Contains(t, err.Error(), "unbounded")
}

func TestScheme_OverdueRate(t *testing.T) {
	scheme, err := newRates().Scheme(engine.LoanSAO)
	require.NoError(t, err)
	assert.Equal(t, "9.00", money(scheme.OverdueRate()))
	assert.Equal(t, 12, scheme.TransitionMonths())
	assert.False(t, scheme.IsEMI())
}

func TestErrorClassification(t *testing.T) {
	neg := &engine.NegativeBalanceError{Date: "2024-01-01", Balance: "10.00", Payment: "20.00"}
	assert.True(t, engine.IsClientError(neg))
	assert.True(t, engine.IsUnprocessable(neg))
	assert.Equal(t, engine.KindNegativeBalance, engine.KindOf(neg))

	assert.False(t, engine.IsClientError(errors.New("disk full")))
	assert.Equal(t, engine.ErrorKind(""), engine.KindOf(errors.New("disk full")))
}
