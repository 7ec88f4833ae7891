package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
)

func TestAccrue_TenDaysAtSevenPercent(t *testing.T) {
	// GIVEN: 100000 at 7% for 10 days
	// THEN: 100000 × 0.07 × 10/365 = 191.78

	res, err := newRates().Accrue(dec("100000"), engine.LoanSAO, date("2024-01-01"), date("2024-01-01"), date("2024-01-11"))
	require.NoError(t, err)

	assert.Equal(t, 10, res.TotalDays)
	assert.Equal(t, "191.78", money(res.TotalInterest))
	assert.False(t, res.CrossesRateBoundary)
	require.Len(t, res.Periods, 1)
	assert.Equal(t, "7.00", money(res.Periods[0].Rate))
}

func TestAccrue_SplitsOnAnniversary(t *testing.T) {
	// GIVEN: Loan disbursed 2024-01-01
	// WHEN: Accruing over [2024-01-01, 2025-02-01)
	// THEN: Two periods, 366 days at 7% then 31 days at 13.75%

	res, err := newRates().Accrue(dec("100000"), engine.LoanSAO, date("2024-01-01"), date("2024-01-01"), date("2025-02-01"))
	require.NoError(t, err)

	assert.True(t, res.CrossesRateBoundary)
	require.Len(t, res.Periods, 2)

	p1, p2 := res.Periods[0], res.Periods[1]
	assert.Equal(t, "2024-01-01", p1.Start.String())
	assert.Equal(t, "2025-01-01", p1.End.String())
	assert.Equal(t, 366, p1.Days)
	assert.Equal(t, "7.00", money(p1.Rate))
	assert.Equal(t, "7019.18", money(p1.Interest))

	assert.Equal(t, "2025-01-01", p2.Start.String())
	assert.Equal(t, "2025-02-01", p2.End.String())
	assert.Equal(t, 31, p2.Days)
	assert.Equal(t, "13.75", money(p2.Rate))
	assert.Equal(t, "1167.81", money(p2.Interest))

	assert.Equal(t, 397, res.TotalDays)
	assert.Equal(t, "8186.99", money(res.TotalInterest))
}

func TestAccrue_RangeEndingOnBoundaryDoesNotSplit(t *testing.T) {
	res, err := newRates().Accrue(dec("100000"), engine.LoanSAO, date("2024-01-01"), date("2024-06-01"), date("2025-01-01"))
	require.NoError(t, err)
	assert.False(t, res.CrossesRateBoundary)
	require.Len(t, res.Periods, 1)
	assert.Equal(t, "7.00", money(res.Periods[0].Rate))
}

func TestAccrue_AfterBoundaryUsesTerminalRate(t *testing.T) {
	res, err := newRates().Accrue(dec("100000"), engine.LoanSAO, date("2024-01-01"), date("2025-03-01"), date("2025-03-11"))
	require.NoError(t, err)
	assert.Equal(t, "376.71", money(res.TotalInterest))
	assert.Equal(t, "13.75", money(res.EffectiveRate()))
}

func TestAccrue_EmptyRangeIsZero(t *testing.T) {
	principals := []string{"0", "1", "100000", "99999999.99"}
	for _, p := range principals {
		res, err := newRates().Accrue(dec(p), engine.LoanRythuBandhu, date("2024-01-01"), date("2024-05-05"), date("2024-05-05"))
		require.NoError(t, err)
		assert.Equal(t, 0, res.TotalDays)
		assert.True(t, res.TotalInterest.IsZero())
		assert.Empty(t, res.Periods)
	}
}

func TestAccrue_Errors(t *testing.T) {
	rates := newRates()
	disbursed := date("2024-01-01")

	tests := []struct {
		name     string
		from, to string
		want     error
	}{
		{"to before from", "2024-02-01", "2024-01-15", engine.ErrInvalidDateRange},
		{"from before disbursement", "2023-12-01", "2024-01-15", engine.ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rates.Accrue(dec("1000"), engine.LoanSAO, disbursed, date(tt.from), date(tt.to))
			assert.True(t, errors.Is(err, tt.want))
		})
	}

	_, err := rates.Accrue(dec("-1"), engine.LoanSAO, disbursed, disbursed, disbursed)
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))

	_, err = rates.AccrueDays(dec("1000"), engine.LoanSAO, disbursed, disbursed, -3)
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
}

func TestSimpleInterest(t *testing.T) {
	assert.Equal(t, "191.78", money(engine.SimpleInterest(dec("100000"), dec("7"), 10)))
	assert.True(t, engine.SimpleInterest(dec("100000"), dec("7"), 0).IsZero())
}

func TestTemplateExplainer_Accrual(t *testing.T) {
	res, err := newRates().AccrueDays(dec("100000"), engine.LoanSAO, date("2024-01-01"), date("2024-01-01"), 10)
	require.NoError(t, err)

	text := engine.TemplateExplainer{}.Explain(res)
	assert.Contains(t, text, "191.78")
	assert.Contains(t, text, "10 days")
}
