package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
)

func TestCalculatePenalty_TierBoundaries(t *testing.T) {
	tests := []struct {
		days      int
		wantRate  int64
		wantLabel string
	}{
		{0, 2, "0-30 days"},
		{30, 2, "0-30 days"},
		{31, 4, "31-90 days"},
		{90, 4, "31-90 days"},
		{91, 6, "90+ days"},
		{1000, 6, "90+ days"},
	}
	for _, tt := range tests {
		res, err := engine.CalculatePenalty(dec("1000"), tt.days, dec("9"))
		require.NoError(t, err)
		assert.Equal(t, tt.wantRate, res.PenaltyRate.IntPart(), "days=%d", tt.days)
		assert.Equal(t, tt.wantLabel, res.TierLabel, "days=%d", tt.days)
	}
}

func TestCalculatePenalty_FortyFiveDays(t *testing.T) {
	// GIVEN: 50000 overdue for 45 days on an SAO loan (7% + 2% penal)
	// THEN: 4% bracket, penalty 2000, interest 50000 × 9% × 45/365

	res, err := engine.CalculatePenalty(dec("50000"), 45, dec("9"))
	require.NoError(t, err)

	assert.Equal(t, "31-90 days", res.TierLabel)
	assert.Equal(t, "2000.00", money(res.PenaltyAmount))
	assert.Equal(t, "554.79", money(res.OverdueInterest))
	assert.Equal(t, "52554.79", money(res.TotalDue))
}

func TestCalculatePenalty_Errors(t *testing.T) {
	_, err := engine.CalculatePenalty(dec("1000"), -1, dec("9"))
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))

	_, err = engine.CalculatePenalty(dec("0"), 10, dec("9"))
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
}

func TestCalculatePenalty_ZeroDaysHasNoInterest(t *testing.T) {
	res, err := engine.CalculatePenalty(dec("1000"), 0, dec("9"))
	require.NoError(t, err)
	assert.True(t, res.OverdueInterest.IsZero())
	assert.Equal(t, "20.00", money(res.PenaltyAmount))
	assert.Equal(t, "1020.00", money(res.TotalDue))
}
