/*
Package factory provides JSON to Go loan scheme conversion.

PURPOSE:
  Converts JSON scheme definitions into an engine.SchemeTable. Rates and
  tenure limits change with government notifications; the society edits a
  JSON file and restarts, no code change or rebuild needed.

JSON SCHEMA:
  [
    {
      "loan_type": "sao",
      "display_name": "SAO (Short Term Agricultural Operation)",
      "method": "prorata_daily",
      "max_tenure_months": 12,
      "penal_rate": 2.0,
      "rate_tiers": [
        {"up_to_months": 12, "annual_rate": 7.0},
        {"annual_rate": 13.75}
      ]
    }
  ]

  A tier without up_to_months is the unbounded terminal tier. penal_rate
  defaults to 2.0 and method to prorata_daily.

USAGE:
  f := factory.NewSchemeFactory()

  table, err := f.Defaults()              // embedded schemes.json
  table, err := f.LoadFile("schemes.json") // operator override

SEE ALSO:
  - engine/rates.go: SchemeTable and its validation
  - schemes.json: the embedded default table
*/
package factory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/engine"
)

//go:embed schemes.json
var defaultSchemesJSON []byte

// DefaultPenalRate is added to the year-one rate for overdue interest when
// a scheme does not set its own.
var DefaultPenalRate = decimal.NewFromInt(2)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SchemeJSON is the JSON representation of a loan scheme.
type SchemeJSON struct {
	LoanType        string           `json:"loan_type"`
	DisplayName     string           `json:"display_name"`
	Method          string           `json:"method,omitempty"`
	MaxTenureMonths int              `json:"max_tenure_months"`
	PenalRate       *decimal.Decimal `json:"penal_rate,omitempty"`
	RateTiers       []RateTierJSON   `json:"rate_tiers"`
}

// RateTierJSON is one rate band.
type RateTierJSON struct {
	UpToMonths int             `json:"up_to_months,omitempty"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
}

// =============================================================================
// SCHEME FACTORY
// =============================================================================

// SchemeFactory converts JSON schemes to engine structs.
type SchemeFactory struct{}

// NewSchemeFactory creates a new scheme factory.
func NewSchemeFactory() *SchemeFactory {
	return &SchemeFactory{}
}

// Defaults parses the embedded scheme table.
func (f *SchemeFactory) Defaults() (engine.SchemeTable, error) {
	return f.ParseSchemes(defaultSchemesJSON)
}

// LoadFile reads and parses a scheme table from disk.
func (f *SchemeFactory) LoadFile(path string) (engine.SchemeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemes file: %w", err)
	}
	return f.ParseSchemes(data)
}

// ParseSchemes parses a JSON array of schemes and validates the result.
func (f *SchemeFactory) ParseSchemes(data []byte) (engine.SchemeTable, error) {
	var list []SchemeJSON
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse schemes JSON: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("schemes JSON defines no schemes")
	}

	table := make(engine.SchemeTable, len(list))
	for _, sj := range list {
		scheme, err := f.FromJSON(sj)
		if err != nil {
			return nil, err
		}
		if _, dup := table[scheme.LoanType]; dup {
			return nil, fmt.Errorf("duplicate scheme for loan type %q", scheme.LoanType)
		}
		table[scheme.LoanType] = scheme
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// FromJSON converts one SchemeJSON to an engine.Scheme.
func (f *SchemeFactory) FromJSON(sj SchemeJSON) (engine.Scheme, error) {
	if sj.LoanType == "" {
		return engine.Scheme{}, fmt.Errorf("scheme is missing loan_type")
	}
	method, err := parseMethod(sj.Method)
	if err != nil {
		return engine.Scheme{}, fmt.Errorf("scheme %s: %w", sj.LoanType, err)
	}

	scheme := engine.Scheme{
		LoanType:        engine.LoanType(sj.LoanType),
		DisplayName:     sj.DisplayName,
		Method:          method,
		MaxTenureMonths: sj.MaxTenureMonths,
		PenalRate:       DefaultPenalRate,
	}
	if scheme.DisplayName == "" {
		scheme.DisplayName = sj.LoanType
	}
	if sj.PenalRate != nil {
		scheme.PenalRate = *sj.PenalRate
	}
	for _, tj := range sj.RateTiers {
		scheme.Tiers = append(scheme.Tiers, engine.RateTier{
			UpToMonths: tj.UpToMonths,
			AnnualRate: tj.AnnualRate,
		})
	}
	return scheme, nil
}

// ToJSON converts a table back to its JSON form, ordered by loan type.
func (f *SchemeFactory) ToJSON(table engine.SchemeTable) []SchemeJSON {
	out := make([]SchemeJSON, 0, len(table))
	for _, s := range table.Sorted() {
		penal := s.PenalRate
		sj := SchemeJSON{
			LoanType:        string(s.LoanType),
			DisplayName:     s.DisplayName,
			Method:          string(s.Method),
			MaxTenureMonths: s.MaxTenureMonths,
			PenalRate:       &penal,
		}
		for _, t := range s.Tiers {
			sj.RateTiers = append(sj.RateTiers, RateTierJSON{UpToMonths: t.UpToMonths, AnnualRate: t.AnnualRate})
		}
		out = append(out, sj)
	}
	return out
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseMethod(s string) (engine.Method, error) {
	switch s {
	case "", string(engine.MethodProRata):
		return engine.MethodProRata, nil
	case string(engine.MethodEMI):
		return engine.MethodEMI, nil
	default:
		return "", fmt.Errorf("unknown method %q", s)
	}
}
