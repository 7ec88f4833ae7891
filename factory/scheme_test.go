package factory_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/factory"
)

func TestDefaults_MatchEngineTable(t *testing.T) {
	// GIVEN: The embedded schemes.json
	// THEN: It describes the same products as engine.DefaultSchemes

	table, err := factory.NewSchemeFactory().Defaults()
	require.NoError(t, err)

	want := engine.DefaultSchemes()
	require.Len(t, table, len(want))
	for lt, w := range want {
		got, ok := table[lt]
		require.True(t, ok, lt)
		assert.Equal(t, w.Method, got.Method, lt)
		assert.Equal(t, w.MaxTenureMonths, got.MaxTenureMonths, lt)
		assert.True(t, w.BaseRate().Equal(got.BaseRate()), lt)
		assert.True(t, w.TerminalRate().Equal(got.TerminalRate()), lt)
		assert.True(t, w.PenalRate.Equal(got.PenalRate), lt)
		assert.Equal(t, w.DisplayName, got.DisplayName, lt)
	}
}

func TestParseSchemes_NewProductWithoutCodeChange(t *testing.T) {
	data := []byte(`[{
		"loan_type": "gold",
		"display_name": "Gold Loan",
		"method": "emi",
		"max_tenure_months": 24,
		"penal_rate": "3",
		"rate_tiers": [{"up_to_months": 12, "annual_rate": 9}, {"annual_rate": 10.5}]
	}]`)

	table, err := factory.NewSchemeFactory().ParseSchemes(data)
	require.NoError(t, err)

	rates := engine.NewRateSchedule(table)
	rate, err := rates.RateForElapsedDays("gold", 400)
	require.NoError(t, err)
	assert.Equal(t, "10.50", rate.StringFixed(2))

	scheme, err := rates.Scheme("gold")
	require.NoError(t, err)
	assert.Equal(t, "12.00", scheme.OverdueRate().StringFixed(2))
}

func TestParseSchemes_Defaults(t *testing.T) {
	data := []byte(`[{"loan_type": "kcc", "max_tenure_months": 12, "rate_tiers": [{"annual_rate": 4}]}]`)

	table, err := factory.NewSchemeFactory().ParseSchemes(data)
	require.NoError(t, err)

	kcc := table["kcc"]
	assert.Equal(t, engine.MethodProRata, kcc.Method)
	assert.Equal(t, "kcc", kcc.DisplayName)
	assert.True(t, factory.DefaultPenalRate.Equal(kcc.PenalRate))
	assert.Equal(t, 0, kcc.TransitionMonths())
}

func TestParseSchemes_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"empty list", `[]`},
		{"missing loan type", `[{"max_tenure_months": 12, "rate_tiers": [{"annual_rate": 4}]}]`},
		{"unknown method", `[{"loan_type": "x", "method": "balloon", "max_tenure_months": 12, "rate_tiers": [{"annual_rate": 4}]}]`},
		{"no terminal tier", `[{"loan_type": "x", "max_tenure_months": 12, "rate_tiers": [{"up_to_months": 12, "annual_rate": 4}]}]`},
		{"zero tenure", `[{"loan_type": "x", "rate_tiers": [{"annual_rate": 4}]}]`},
		{"duplicate", `[{"loan_type": "x", "max_tenure_months": 1, "rate_tiers": [{"annual_rate": 4}]},
		                {"loan_type": "x", "max_tenure_months": 1, "rate_tiers": [{"annual_rate": 4}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewSchemeFactory().ParseSchemes([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestParseSchemes_TierErrorsAreEngineErrors(t *testing.T) {
	_, err := factory.NewSchemeFactory().ParseSchemes([]byte(
		`[{"loan_type": "x", "max_tenure_months": 12, "rate_tiers": [{"up_to_months": 12, "annual_rate": 4}]}]`))
	assert.True(t, errors.Is(err, engine.ErrInvalidInput))
}

func TestLoadFile(t *testing.T) {
	f := factory.NewSchemeFactory()
	table, err := f.Defaults()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "schemes.json")
	data, err := json.Marshal(f.ToJSON(table))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := f.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, loaded, len(table))

	_, err = f.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
