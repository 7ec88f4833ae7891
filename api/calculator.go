/*
calculator.go - Smart calculator endpoints

PURPOSE:
  Thin HTTP wrappers over the engine. Each handler loads what it needs
  from the loan book, calls one engine operation, converts the result to
  a DTO and attaches an explanation.

ENDPOINTS (prefix /api/smart-calculator):
  POST /calculate/interest-for-days     Interest for N days (loan or ad hoc)
  GET  /interest-tomorrow/{loan_id}     Interest owed as of tomorrow
  POST /calculate/interest-projections  Payable today, tomorrow, +10, +30 days
  POST /calculate/pro-rata-interest     Accrual over a date range
  POST /calculate/overdue-with-penalty  Overdue interest plus tier penalty
  POST /penalty/calculate               Tier penalty only
  POST /emi-schedule                    Installment status as of a date
  POST /generate/emi-amortization       Baseline amortization schedule
  POST /generate/loan-ledger            Replayed statement
  POST /simulate/payment                What-if prepayment
  POST /compare/loan-schemes            Price a loan under several schemes
  GET  /rate/check-switching/{loan_id}  Which rate applies on a date
  GET  /schemes                         Configured schemes

DATES:
  Omitted dates default to the handler clock's today. Ranges are
  half-open: to_date itself earns no interest.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// =============================================================================
// INTEREST
// =============================================================================

// InterestForDays prices a number of days. With loan_id the loan's terms
// are used and from_date defaults to today; without it loan_type and
// principal_amount are required and the loan is treated as disbursed on
// from_date.
func (h *Handler) InterestForDays(w http.ResponseWriter, r *http.Request) {
	var req InterestForDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	from, err := parseOptionalDate("from_date", req.FromDate, h.today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var (
		loanType     engine.LoanType
		principal    decimal.Decimal
		disbursement = from
	)
	if req.LoanID != "" {
		loan, err := h.Store.GetLoan(r.Context(), loanbook.LoanID(req.LoanID))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		loanType = loan.LoanType
		principal = loan.Principal
		disbursement = loan.DisbursementDate
	} else {
		if req.LoanType == "" || req.PrincipalAmount == nil {
			h.writeError(w, r, errBadRequest("loan_id or loan_type with principal_amount is required"))
			return
		}
		loanType = engine.LoanType(req.LoanType)
		principal = decimal.NewFromFloat(*req.PrincipalAmount)
	}
	if req.Days <= 0 {
		h.writeError(w, r, errBadRequest("days must be positive"))
		return
	}

	res, err := h.Rates.AccrueDays(principal, loanType, disbursement, from, req.Days)
	h.Metrics.observeCalculation("interest_for_days", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := toInterestResponse(loanType, res)
	resp.LoanID = req.LoanID
	resp.Explanation = h.Explainer.Explain(res)
	writeJSON(w, http.StatusOK, resp)
}

// ProRataInterest accrues a stored loan's principal from from_date
// (default disbursement) to to_date (default today).
func (h *Handler) ProRataInterest(w http.ResponseWriter, r *http.Request) {
	var req ProRataInterestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, _, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	from, err := parseOptionalDate("from_date", req.FromDate, loan.DisbursementDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseOptionalDate("to_date", req.ToDate, h.today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Rates.Accrue(loan.Principal, loan.LoanType, loan.DisbursementDate, from, to)
	h.Metrics.observeCalculation("pro_rata_interest", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := toInterestResponse(loan.LoanType, res)
	resp.LoanID = string(loan.ID)
	resp.Explanation = h.Explainer.Explain(res)
	writeJSON(w, http.StatusOK, resp)
}

// InterestTomorrow returns the interest the loan will owe as of tomorrow.
func (h *Handler) InterestTomorrow(w http.ResponseWriter, r *http.Request) {
	loan, txs, err := h.loadLoan(r.Context(), chi.URLParam(r, "loan_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	proj, err := h.Rates.Project(loan.Terms(), txs, h.today())
	h.Metrics.observeCalculation("interest_tomorrow", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pt, _ := proj.Point(engine.ProjectTomorrow)
	writeJSON(w, http.StatusOK, InterestTomorrowResponse{
		LoanID:               string(loan.ID),
		Date:                 pt.Date.String(),
		InterestAmount:       money(pt.InterestOutstanding),
		PrincipalOutstanding: money(pt.PrincipalOutstanding),
		TotalPayable:         money(pt.TotalPayable),
	})
}

// InterestProjections returns payable amounts at today and three later dates.
func (h *Handler) InterestProjections(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, txs, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	proj, err := h.Rates.Project(loan.Terms(), txs, h.today())
	h.Metrics.observeCalculation("interest_projections", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ProjectionResponse{
		LoanID:      string(loan.ID),
		Today:       proj.Today.String(),
		Projections: make([]ProjectionPointDTO, len(proj.Points)),
	}
	for i, pt := range proj.Points {
		resp.Projections[i] = ProjectionPointDTO{
			Label:                pt.Label,
			Date:                 pt.Date.String(),
			DaysFromToday:        pt.DaysFromToday,
			PrincipalOutstanding: money(pt.PrincipalOutstanding),
			InterestOutstanding:  money(pt.InterestOutstanding),
			TotalPayable:         money(pt.TotalPayable),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckRateSwitching reports the rate in force on as_of_date (query,
// default today) and when the loan moves to its post-year rate.
func (h *Handler) CheckRateSwitching(w http.ResponseWriter, r *http.Request) {
	loan, _, err := h.loadLoan(r.Context(), chi.URLParam(r, "loan_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !loan.IsDisbursed() {
		h.writeError(w, r, errBadRequest("loan has not been disbursed"))
		return
	}
	asOf := h.today()
	if q := r.URL.Query().Get("as_of_date"); q != "" {
		if asOf, err = parseDate("as_of_date", q); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	scheme, err := h.Rates.Scheme(loan.LoanType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rate, err := h.Rates.RateOn(loan.LoanType, loan.DisbursementDate, asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	boundary, ok, err := h.Rates.BoundaryDate(loan.LoanType, loan.DisbursementDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := RateSwitchResponse{
		LoanID:        string(loan.ID),
		LoanType:      string(loan.LoanType),
		AsOfDate:      asOf.String(),
		DaysElapsed:   calendar.DaysBetween(loan.DisbursementDate, asOf),
		CurrentRate:   money(rate),
		BaseRate:      money(scheme.BaseRate()),
		RateAfterYear: money(scheme.TerminalRate()),
	}
	if ok {
		resp.SwitchDate = boundary.String()
		resp.Switched = !asOf.Before(boundary)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// OVERDUE & PENALTY
// =============================================================================

// OverdueWithPenalty prices an overdue amount at the loan's overdue rate
// plus the tier penalty.
func (h *Handler) OverdueWithPenalty(w http.ResponseWriter, r *http.Request) {
	var req OverdueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, _, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	scheme, err := h.Rates.Scheme(loan.LoanType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := engine.CalculatePenalty(decimal.NewFromFloat(req.OverdueAmount), req.OverdueDays, scheme.OverdueRate())
	h.Metrics.observeCalculation("overdue_with_penalty", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := toPenaltyResponse(res)
	resp.LoanID = string(loan.ID)
	resp.Explanation = h.Explainer.Explain(res)
	writeJSON(w, http.StatusOK, resp)
}

// PenaltyOnly returns the tier penalty without overdue interest.
func (h *Handler) PenaltyOnly(w http.ResponseWriter, r *http.Request) {
	var req OverdueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LoanID != "" {
		if _, err := h.Store.GetLoan(r.Context(), loanbook.LoanID(req.LoanID)); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	res, err := engine.CalculatePenalty(decimal.NewFromFloat(req.OverdueAmount), req.OverdueDays, decimal.Zero)
	h.Metrics.observeCalculation("penalty", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PenaltyResponse{
		LoanID:        req.LoanID,
		OverdueAmount: money(res.OverdueAmount),
		OverdueDays:   res.OverdueDays,
		PenaltyTier:   res.TierLabel,
		PenaltyRate:   money(res.PenaltyRate),
		PenaltyAmount: money(res.PenaltyAmount),
		TotalDue:      money(res.OverdueAmount.Add(res.PenaltyAmount)),
	})
}

// =============================================================================
// SCHEDULES
// =============================================================================

// EMISchedule overlays actual payments on the baseline schedule.
func (h *Handler) EMISchedule(w http.ResponseWriter, r *http.Request) {
	var req EMIScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, txs, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	asOf, err := parseOptionalDate("as_of_date", req.AsOfDate, h.today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	schedule, err := h.Rates.Amortize(loan.Terms())
	h.Metrics.observeCalculation("emi_schedule", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap := engine.SnapshotAsOf(schedule, txs, asOf)

	resp := EMIScheduleResponse{
		LoanID:             string(loan.ID),
		AsOfDate:           asOf.String(),
		PrincipalAmount:    money(loan.Principal),
		TotalPaid:          money(snap.TotalPaid),
		OutstandingBalance: money(snap.OutstandingBalance),
		OverdueCount:       snap.OverdueCount,
		OverdueAmount:      money(snap.OverdueAmount),
		EMISchedule:        toInstallmentDTOs(snap.Installments),
	}
	if snap.NextDue != nil {
		next := toInstallmentDTO(*snap.NextDue)
		resp.NextDue = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// EMIAmortization returns the baseline schedule and its totals.
func (h *Handler) EMIAmortization(w http.ResponseWriter, r *http.Request) {
	var req LoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, _, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	schedule, err := h.Rates.Amortize(loan.Terms())
	h.Metrics.observeCalculation("emi_amortization", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary := engine.SummarizeSchedule(schedule)

	writeJSON(w, http.StatusOK, AmortizationResponse{
		LoanID:               string(loan.ID),
		LoanType:             string(loan.LoanType),
		PrincipalAmount:      money(loan.Principal),
		TenureMonths:         loan.TenureMonths,
		EMIAmount:            money(summary.FirstEMI),
		AmortizationSchedule: toInstallmentDTOs(schedule),
		Summary:              toSummaryDTO(summary),
		Explanation:          h.Explainer.Explain(summary),
	})
}

// LoanLedger replays the loan's history into a statement.
func (h *Handler) LoanLedger(w http.ResponseWriter, r *http.Request) {
	var req LedgerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, txs, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var opts engine.LedgerOptions
	if req.AsOfDate != nil {
		asOf, err := parseDate("as_of_date", *req.AsOfDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		opts.AsOf = &asOf
	}

	ledger, err := h.Rates.Build(loan.Terms(), txs, opts)
	h.Metrics.observeCalculation("loan_ledger", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LedgerResponse{
		LoanID:          string(loan.ID),
		FarmerName:      loan.FarmerName,
		LoanType:        string(loan.LoanType),
		PrincipalAmount: money(loan.Principal),
		LedgerEntries:   toLedgerEntryDTOs(ledger.Entries),
		Summary:         toLedgerSummaryDTO(ledger.Summary),
	})
}

// =============================================================================
// SIMULATION & COMPARISON
// =============================================================================

// SimulatePayment applies a hypothetical payment to the loan's schedule.
// reduce_emi defaults to true.
func (h *Handler) SimulatePayment(w http.ResponseWriter, r *http.Request) {
	var req SimulatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loan, _, err := h.loadLoan(r.Context(), req.LoanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reduceEMI := true
	if req.ReduceEMI != nil {
		reduceEMI = *req.ReduceEMI
	}

	payment := engine.HypotheticalPayment{
		Amount: decimal.NewFromFloat(req.PaymentAmount),
		Date:   date,
		Type:   engine.PaymentType(req.SimulationType),
	}
	res, err := h.Rates.Simulate(loan.Terms(), payment, reduceEMI)
	h.Metrics.observeCalculation("simulate_payment", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SimulationResponse{
		LoanID:              string(loan.ID),
		SimulationType:      string(res.Payment.Type),
		PaymentAmount:       money(res.Payment.Amount),
		PaymentDate:         res.Payment.Date.String(),
		ReduceEMI:           res.ReduceEMI,
		InstallmentsPaid:    res.InstallmentsPaid,
		OutstandingBefore:   money(res.OutstandingBefore),
		OutstandingAfter:    money(res.OutstandingAfter),
		CurrentEMI:          money(res.CurrentEMI),
		NewEMI:              money(res.NewEMI),
		EMIReduction:        money(res.EMIReduction),
		RemainingMonths:     res.RemainingMonths,
		NewTenureMonths:     res.NewTenureMonths,
		TenureReducedMonths: res.TenureReducedMonths,
		NewMaturityDate:     dateString(res.NewMaturityDate),
		InterestBefore:      money(res.BaselineInterest),
		InterestAfter:       money(res.NewInterest),
		TotalInterestSaved:  money(res.TotalInterestSaved),
		LoanClosed:          res.Closed(),
		NewSchedule:         toInstallmentDTOs(res.NewSchedule),
		Explanation:         h.Explainer.Explain(res),
	})
}

// CompareSchemes prices a hypothetical loan under each requested scheme.
// An empty loan_types compares every configured scheme.
func (h *Handler) CompareSchemes(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := parseOptionalDate("start_date", req.StartDate, h.today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	types := make([]engine.LoanType, 0, len(req.LoanTypes))
	for _, lt := range req.LoanTypes {
		types = append(types, engine.LoanType(lt))
	}
	if len(types) == 0 {
		for _, s := range h.Rates.Schemes().Sorted() {
			types = append(types, s.LoanType)
		}
	}

	cmp, err := h.Rates.Compare(decimal.NewFromFloat(req.PrincipalAmount), req.TenureMonths, types, start)
	h.Metrics.observeCalculation("compare_schemes", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := toCompareResponse(cmp)
	resp.Explanation = h.Explainer.Explain(cmp)
	writeJSON(w, http.StatusOK, resp)
}
