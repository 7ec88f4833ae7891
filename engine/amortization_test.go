package engine_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
)

func TestGenerateSchedule_PrincipalSumsAndBalanceReachesZero(t *testing.T) {
	for _, months := range []int{1, 6, 12, 13, 24, 60, 108} {
		schedule, err := engine.GenerateSchedule(dec("100000"), dec("12"), dec("12.75"), months, date("2024-01-01"))
		require.NoError(t, err)
		require.Len(t, schedule, months)

		sum := decimal.Zero
		prev := dec("100000")
		for _, inst := range schedule {
			sum = sum.Add(inst.Principal)
			assert.True(t, inst.BalanceAfter.LessThanOrEqual(prev), "months=%d installment %d", months, inst.Number)
			prev = inst.BalanceAfter
		}
		assert.Equal(t, "100000.00", money(sum), "months=%d", months)
		assert.True(t, schedule[months-1].BalanceAfter.IsZero(), "months=%d", months)
	}
}

func TestGenerateSchedule_KnownEMI(t *testing.T) {
	// GIVEN: 100000 at 12% for 12 months
	// THEN: Textbook EMI 8884.88, first month interest 1000

	schedule, err := engine.GenerateSchedule(dec("100000"), dec("12"), dec("12"), 12, date("2024-01-01"))
	require.NoError(t, err)

	first := schedule[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "2024-02-01", first.DueDate.String())
	assert.Equal(t, "8884.88", money(first.EMI))
	assert.Equal(t, "1000.00", money(first.Interest))
	assert.Equal(t, "7884.88", money(first.Principal))
	assert.Equal(t, "92115.12", money(first.BalanceAfter))
	assert.Equal(t, engine.StatusPending, first.Status)
	assert.Equal(t, "2025-01-01", schedule[11].DueDate.String())
}

func TestGenerateSchedule_ReamortizesAfterYearOne(t *testing.T) {
	// GIVEN: 24-month loan, 12% in year one, 14.5% after
	// THEN: Months 1-12 share one EMI, months 13-23 share a higher one

	schedule, err := engine.GenerateSchedule(dec("100000"), dec("12"), dec("14.5"), 24, date("2024-01-01"))
	require.NoError(t, err)

	yearOne := schedule[0].EMI
	for _, inst := range schedule[:12] {
		assert.True(t, yearOne.Equal(inst.EMI), "installment %d", inst.Number)
		assert.Equal(t, "12.00", money(inst.Rate))
	}
	yearTwo := schedule[12].EMI
	assert.True(t, yearTwo.GreaterThan(yearOne))
	for _, inst := range schedule[12:23] {
		assert.True(t, yearTwo.Equal(inst.EMI), "installment %d", inst.Number)
		assert.Equal(t, "14.50", money(inst.Rate))
	}

	summary := engine.SummarizeSchedule(schedule)
	assert.True(t, yearOne.Equal(summary.FirstEMI))
	assert.True(t, yearTwo.Equal(summary.EMIAfterYear))
	assert.Equal(t, "100000.00", money(summary.TotalPrincipal))
	assert.True(t, summary.TotalPayment.Equal(summary.TotalPrincipal.Add(summary.TotalInterest)))
}

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	schedule, err := engine.GenerateSchedule(dec("1200"), dec("0"), dec("0"), 12, date("2024-01-01"))
	require.NoError(t, err)
	for _, inst := range schedule {
		assert.Equal(t, "100.00", money(inst.EMI))
		assert.True(t, inst.Interest.IsZero())
	}
}

func TestGenerateSchedule_Idempotent(t *testing.T) {
	a, err := engine.GenerateSchedule(dec("250000"), dec("12.5"), dec("14.5"), 60, date("2024-03-15"))
	require.NoError(t, err)
	b, err := engine.GenerateSchedule(dec("250000"), dec("12.5"), dec("14.5"), 60, date("2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateSchedule_TinyPrincipalKeepsTenure(t *testing.T) {
	// GIVEN: Principals small enough for paise rounding to retire them early
	// THEN: Every schedule still has one row per month and ends at zero

	for _, principal := range []string{"1", "0.50", "3.33", "12"} {
		for _, months := range []int{1, 12, 13, 22, 36, 60} {
			schedule, err := engine.GenerateSchedule(dec(principal), dec("12"), dec("12.75"), months, date("2024-01-01"))
			require.NoError(t, err)
			require.Len(t, schedule, months, "principal %s over %d months", principal, months)

			summary := engine.SummarizeSchedule(schedule)
			assert.Equal(t, money(dec(principal)), money(summary.TotalPrincipal))
			last := schedule[months-1]
			assert.Equal(t, months, last.Number)
			assert.True(t, last.BalanceAfter.IsZero())
		}
	}
}

func TestGenerateSchedule_Errors(t *testing.T) {
	_, err := engine.GenerateSchedule(dec("1000"), dec("12"), dec("12"), 0, date("2024-01-01"))
	assert.True(t, errors.Is(err, engine.ErrInvalidTenure))

	_, err = engine.GenerateSchedule(dec("0"), dec("12"), dec("12"), 12, date("2024-01-01"))
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
}

func TestAmortize_UsesSchemeRates(t *testing.T) {
	schedule, err := newRates().Amortize(emiLoan(24))
	require.NoError(t, err)
	assert.Equal(t, "12.00", money(schedule[0].Rate))
	assert.Equal(t, "12.75", money(schedule[12].Rate))
}
