package engine_test

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) civil.Date {
	return calendar.MustParseDate(s)
}

func newRates() *engine.RateSchedule {
	return engine.NewRateSchedule(engine.DefaultSchemes())
}

func saoLoan() engine.LoanTerms {
	return engine.LoanTerms{
		LoanType:         engine.LoanSAO,
		Principal:        dec("100000"),
		TenureMonths:     12,
		DisbursementDate: date("2024-01-01"),
	}
}

func emiLoan(months int) engine.LoanTerms {
	return engine.LoanTerms{
		LoanType:         engine.LoanLongTermEMI,
		Principal:        dec("100000"),
		TenureMonths:     months,
		DisbursementDate: date("2024-01-01"),
	}
}

func payment(on string, amount string) engine.Transaction {
	return engine.Transaction{Date: date(on), Type: engine.TxPayment, Amount: dec(amount)}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
