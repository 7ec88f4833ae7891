package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
	"github.com/pacs/loan-engine/loanbook/loanbooktest"
)

func floatPtr(f float64) *float64 { return &f }

// seedEMI stores an active 12-month long-term EMI loan of 100000 disbursed 2024-01-01.
func (ts *testServer) seedEMI(id string) {
	ts.t.Helper()
	loan := loanbooktest.ActiveLoan(loanbook.LoanID(id))
	loan.LoanType = engine.LoanLongTermEMI
	require.NoError(ts.t, ts.store.CreateLoan(context.Background(), loan))
}

// =============================================================================
// INTEREST
// =============================================================================

func TestInterestForDays(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	tests := []struct {
		name string
		req  InterestForDaysRequest
	}{
		{"stored loan", InterestForDaysRequest{LoanID: "L-1", Days: 10, FromDate: strPtr("2024-01-01")}},
		{"ad hoc", InterestForDaysRequest{LoanType: "sao", PrincipalAmount: floatPtr(100000), Days: 10, FromDate: strPtr("2024-01-01")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/interest-for-days", tt.req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decodeBody[InterestResponse](t, rec)
			assert.Equal(t, 191.78, resp.InterestAmount)
			assert.Equal(t, 100191.78, resp.TotalAmount)
			assert.Equal(t, 7.0, resp.AnnualRate)
			assert.Equal(t, "2024-01-11", resp.ToDate)
			assert.NotEmpty(t, resp.Explanation)
		})
	}
}

func TestInterestForDays_Rejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		req    InterestForDaysRequest
		status int
	}{
		{"no loan and no principal", InterestForDaysRequest{Days: 10}, http.StatusBadRequest},
		{"zero days", InterestForDaysRequest{LoanType: "sao", PrincipalAmount: floatPtr(1000), Days: 0}, http.StatusBadRequest},
		{"unknown loan type", InterestForDaysRequest{LoanType: "gold", PrincipalAmount: floatPtr(1000), Days: 5}, http.StatusBadRequest},
		{"unknown loan", InterestForDaysRequest{LoanID: "missing", Days: 5}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/interest-for-days", tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestProRataInterest_SplitsAtRateBoundary(t *testing.T) {
	// GIVEN: SAO loan disbursed 2024-01-01
	// WHEN: Accruing from disbursement to 2025-02-01
	// THEN: 366 days at 7% and 31 days at 13.75%

	ts := newTestServer(t)
	ts.seedSAO("L-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/pro-rata-interest", ProRataInterestRequest{
		LoanID: "L-1", ToDate: strPtr("2025-02-01"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[InterestResponse](t, rec)
	assert.True(t, resp.CrossesRateBoundary)
	require.Len(t, resp.Periods, 2)
	assert.Equal(t, 7019.18, resp.Periods[0].Interest)
	assert.Equal(t, 1167.81, resp.Periods[1].Interest)
	assert.Equal(t, 8186.99, resp.InterestAmount)
	assert.Equal(t, "2024-01-01", resp.FromDate)
}

func TestProRataInterest_InvertedRange(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/pro-rata-interest", ProRataInterestRequest{
		LoanID: "L-1", FromDate: strPtr("2024-03-01"), ToDate: strPtr("2024-02-01"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(engine.KindInvalidDateRange), decodeBody[ErrorResponse](t, rec).Kind)
}

func TestInterestTomorrow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	rec := ts.do(http.MethodGet, "/api/smart-calculator/interest-tomorrow/L-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[InterestTomorrowResponse](t, rec)
	assert.Equal(t, "2024-01-12", resp.Date)
	assert.Equal(t, 210.96, resp.InterestAmount)
	assert.Equal(t, 100000.0, resp.PrincipalOutstanding)
}

func TestInterestProjections(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/interest-projections", LoanRequest{LoanID: "L-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[ProjectionResponse](t, rec)
	assert.Equal(t, "2024-01-11", resp.Today)
	got := map[string]float64{}
	for _, p := range resp.Projections {
		got[p.Label] = p.InterestOutstanding
	}
	assert.Equal(t, map[string]float64{
		engine.ProjectToday:     191.78,
		engine.ProjectTomorrow:  210.96,
		engine.ProjectTenDays:   383.56,
		engine.ProjectNextMonth: 767.12,
	}, got)
}

func TestCheckRateSwitching(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	tests := []struct {
		name     string
		query    string
		rate     float64
		switched bool
		elapsed  int
	}{
		{"today is year one", "", 7, false, 10},
		{"day 365", "?as_of_date=2024-12-31", 7, false, 365},
		{"day 366", "?as_of_date=2025-01-01", 13.75, true, 366},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, "/api/smart-calculator/rate/check-switching/L-1"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decodeBody[RateSwitchResponse](t, rec)
			assert.Equal(t, tt.rate, resp.CurrentRate)
			assert.Equal(t, tt.switched, resp.Switched)
			assert.Equal(t, tt.elapsed, resp.DaysElapsed)
			assert.Equal(t, "2025-01-01", resp.SwitchDate)
		})
	}
}

// =============================================================================
// OVERDUE & PENALTY
// =============================================================================

func TestOverdueWithPenalty(t *testing.T) {
	// GIVEN: 50000 overdue 45 days on an SAO loan (7% + 2% penal)
	// THEN: 4% penalty and 9% overdue interest

	ts := newTestServer(t)
	ts.seedSAO("L-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/overdue-with-penalty", OverdueRequest{
		LoanID: "L-1", OverdueAmount: 50000, OverdueDays: 45,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[PenaltyResponse](t, rec)
	assert.Equal(t, "31-90 days", resp.PenaltyTier)
	assert.Equal(t, 9.0, resp.OverdueRate)
	assert.Equal(t, 2000.0, resp.PenaltyAmount)
	assert.Equal(t, 554.79, resp.OverdueInterest)
	assert.Equal(t, 52554.79, resp.TotalDue)
}

func TestOverdueWithPenalty_RequiresLoan(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/smart-calculator/calculate/overdue-with-penalty", OverdueRequest{OverdueAmount: 100, OverdueDays: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPenaltyOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/smart-calculator/penalty/calculate", OverdueRequest{OverdueAmount: 1000, OverdueDays: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[PenaltyResponse](t, rec)
	assert.Equal(t, 20.0, resp.PenaltyAmount)
	assert.Equal(t, 1020.0, resp.TotalDue)

	rec = ts.do(http.MethodPost, "/api/smart-calculator/penalty/calculate", OverdueRequest{OverdueAmount: 1000, OverdueDays: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestEMIAmortization(t *testing.T) {
	ts := newTestServer(t)
	ts.seedEMI("E-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/generate/emi-amortization", LoanRequest{LoanID: "E-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[AmortizationResponse](t, rec)
	assert.Equal(t, 8884.88, resp.EMIAmount)
	assert.Len(t, resp.AmortizationSchedule, 12)
	assert.Equal(t, 12, resp.Summary.Installments)
	assert.Equal(t, 0.0, resp.AmortizationSchedule[11].BalanceAfter)
	assert.NotEmpty(t, resp.Explanation)
}

func TestEMISchedule_OverdueWithoutPayments(t *testing.T) {
	// GIVEN: An EMI loan with nothing paid
	// WHEN: Viewing the schedule on 2024-03-15
	// THEN: The February and March installments are overdue

	ts := newTestServer(t)
	ts.seedEMI("E-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/emi-schedule", EMIScheduleRequest{LoanID: "E-1", AsOfDate: strPtr("2024-03-15")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[EMIScheduleResponse](t, rec)
	assert.Equal(t, 2, resp.OverdueCount)
	assert.Equal(t, 0.0, resp.TotalPaid)
	assert.Equal(t, 100000.0, resp.OutstandingBalance)
	require.NotNil(t, resp.NextDue)
	assert.Equal(t, 1, resp.NextDue.InstallmentNo)
}

func TestSimulatePayment(t *testing.T) {
	ts := newTestServer(t)
	ts.seedEMI("E-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/simulate/payment", SimulatePaymentRequest{
		LoanID: "E-1", PaymentAmount: 20000, PaymentDate: "2024-03-15", SimulationType: "prepayment",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[SimulationResponse](t, rec)
	assert.True(t, resp.ReduceEMI)
	assert.Equal(t, 2, resp.InstallmentsPaid)
	assert.Less(t, resp.NewEMI, resp.CurrentEMI)
	assert.Greater(t, resp.TotalInterestSaved, 0.0)
	assert.InDelta(t, resp.OutstandingBefore-20000, resp.OutstandingAfter, 0.005)
}

func TestSimulatePayment_ExceedsBalance(t *testing.T) {
	ts := newTestServer(t)
	ts.seedEMI("E-1")

	rec := ts.do(http.MethodPost, "/api/smart-calculator/simulate/payment", SimulatePaymentRequest{
		LoanID: "E-1", PaymentAmount: 500000, PaymentDate: "2024-03-15", SimulationType: "prepayment",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(engine.KindPaymentExceedsBalance), decodeBody[ErrorResponse](t, rec).Kind)
}

// =============================================================================
// COMPARISON & SCHEMES
// =============================================================================

func TestCompareSchemes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/smart-calculator/compare/loan-schemes", CompareRequest{
		PrincipalAmount: 100000, TenureMonths: 12, StartDate: strPtr("2025-01-01"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[CompareResponse](t, rec)
	assert.Len(t, resp.Comparisons, 5)
	require.NotNil(t, resp.BestScheme)
	assert.Equal(t, string(engine.LoanLongTermEMI), resp.BestScheme.LoanType)
	assert.Equal(t, 8884.88, resp.BestScheme.EMIAmount)
	assert.Contains(t, resp.Recommendation, "Long Term EMI Loan")

	for _, c := range resp.Comparisons {
		if c.LoanType == string(engine.LoanAmul) {
			assert.False(t, c.Eligible)
		}
	}
}

func TestCompareSchemes_Subset(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/smart-calculator/compare/loan-schemes", CompareRequest{
		PrincipalAmount: 100000, TenureMonths: 12, LoanTypes: []string{"sao", "rythu_bandhu"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[CompareResponse](t, rec)
	require.Len(t, resp.Comparisons, 2)
	require.NotNil(t, resp.BestScheme)
	assert.Equal(t, "sao", resp.BestScheme.LoanType)
	assert.Equal(t, testToday.String(), resp.StartDate)
}

func TestListSchemes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/smart-calculator/schemes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	schemes := decodeBody[[]SchemeDTO](t, rec)
	require.Len(t, schemes, 5)
	for _, s := range schemes {
		if s.LoanType == "sao" {
			assert.Equal(t, 7.0, s.BaseRate)
			assert.Equal(t, 13.75, s.RateAfterYear)
			assert.Equal(t, 9.0, s.OverdueRate)
		}
	}
}
