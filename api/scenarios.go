/*
scenarios.go - Demo loan books for testing and demonstrations

PURPOSE:

	Provides pre-built loan books that exercise the calculator end to end.
	Each scenario creates loans and their transaction history relative to
	the handler clock, so "today" always lands somewhere interesting.

AVAILABLE SCENARIOS:

	crop-season:  SAO crop loan mid-season with one partial repayment
	rate-switch:  Rythu Bandhu loan that has crossed its one-year boundary
	emi-tractor:  Long-term EMI loan with every installment paid on time
	dairy:        Amul dairy loan three months in
	overdue:      SAO loan two months past maturity, nothing repaid
	society:      All of the above in one book

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create loans through the store
 3. Post disbursements and repayments
 4. Remember the scenario as current

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "rate-switch"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - server.go: /api/scenarios routes
  - loanbook/loanbook.go: Store
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// resetter is implemented by stores that can be wiped for demo reloads.
type resetter interface {
	Reset(ctx context.Context) error
}

var errResetUnsupported = errors.New("store does not support reset")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(h *Handler, ctx context.Context, today civil.Date) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "crop-season",
			Name:        "Crop Season",
			Description: "SAO crop loan 200 days in, with a partial repayment after harvest",
			Loans:       1,
		},
		load: loadCropSeason,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rate-switch",
			Name:        "Rate Switch",
			Description: "Rythu Bandhu loan past its first year, now at the higher rate",
			Loans:       1,
		},
		load: loadRateSwitch,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "emi-tractor",
			Name:        "Tractor EMI",
			Description: "Three-year long-term EMI loan with every installment paid on its due date",
			Loans:       1,
		},
		load: loadTractorEMI,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "dairy",
			Name:        "Dairy Loan",
			Description: "Amul dairy loan three months after disbursement",
			Loans:       1,
		},
		load: loadDairy,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "overdue",
			Name:        "Overdue Crop Loan",
			Description: "SAO loan two months past maturity with nothing repaid",
			Loans:       1,
		},
		load: loadOverdue,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "society",
			Name:        "Whole Society",
			Description: "Every scenario loaded together, plus one loan awaiting disbursement",
			Loans:       6,
		},
		load: loadSociety,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		h.writeError(w, r, errBadRequest(fmt.Sprintf("unknown scenario %q", req.ScenarioID)))
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.resetStore(ctx); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.currentScenario = ""

	if err := s.load(h, ctx, h.today()); err != nil {
		h.writeError(w, r, fmt.Errorf("failed to load scenario %s: %w", s.ID, err))
		return
	}
	h.currentScenario = s.ID
	h.Logger.Info("scenario loaded", zap.String("scenario", s.ID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetDatabase clears every loan, transaction and accrual.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.resetStore(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.currentScenario = ""
	h.Logger.Info("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) resetStore(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return errResetUnsupported
	}
	return rs.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedLoan creates an active loan and posts its disbursement.
func seedLoan(ctx context.Context, store loanbook.Store, id, farmer string, lt engine.LoanType, principal int64, tenure int, disbursed civil.Date) (loanbook.Loan, error) {
	loan := loanbook.Loan{
		ID:               loanbook.LoanID(id),
		FarmerName:       farmer,
		LoanType:         lt,
		Principal:        decimal.NewFromInt(principal),
		TenureMonths:     tenure,
		DisbursementDate: disbursed,
		Status:           loanbook.StatusActive,
	}
	if err := store.CreateLoan(ctx, loan); err != nil {
		return loanbook.Loan{}, err
	}
	err := store.AppendTransaction(ctx, loanbook.Transaction{
		ID:        loanbook.NewTransactionID(),
		LoanID:    loan.ID,
		Date:      disbursed,
		Type:      engine.TxDisbursement,
		Amount:    loan.Principal,
		Reference: "DISB-" + id,
	})
	return loan, err
}

func pay(ctx context.Context, store loanbook.Store, loanID loanbook.LoanID, date civil.Date, amount decimal.Decimal, ref string) error {
	return store.AppendTransaction(ctx, loanbook.Transaction{
		ID:        loanbook.NewTransactionID(),
		LoanID:    loanID,
		Date:      date,
		Type:      engine.TxPayment,
		Amount:    amount,
		Reference: ref,
	})
}

func loadCropSeason(h *Handler, ctx context.Context, today civil.Date) error {
	loan, err := seedLoan(ctx, h.Store, "crop-001", "Ramesh Reddy", engine.LoanSAO, 100000, 12, calendar.AddDays(today, -200))
	if err != nil {
		return err
	}
	return pay(ctx, h.Store, loan.ID, calendar.AddDays(today, -60), decimal.NewFromInt(20000), "HARVEST-1")
}

func loadRateSwitch(h *Handler, ctx context.Context, today civil.Date) error {
	_, err := seedLoan(ctx, h.Store, "switch-001", "Lakshmi Devi", engine.LoanRythuBandhu, 50000, 12, calendar.AddDays(today, -380))
	return err
}

// loadTractorEMI pays every installment due before today in full.
func loadTractorEMI(h *Handler, ctx context.Context, today civil.Date) error {
	loan, err := seedLoan(ctx, h.Store, "emi-001", "Venkat Rao", engine.LoanLongTermEMI, 500000, 36, calendar.AddMonths(today, -6))
	if err != nil {
		return err
	}
	schedule, err := h.Rates.Amortize(loan.Terms())
	if err != nil {
		return err
	}
	for _, inst := range schedule {
		if !inst.DueDate.Before(today) {
			break
		}
		if err := pay(ctx, h.Store, loan.ID, inst.DueDate, inst.EMI, fmt.Sprintf("EMI-%02d", inst.Number)); err != nil {
			return err
		}
	}
	return nil
}

func loadDairy(h *Handler, ctx context.Context, today civil.Date) error {
	_, err := seedLoan(ctx, h.Store, "dairy-001", "Sarita Patel", engine.LoanAmul, 75000, 10, calendar.AddDays(today, -90))
	return err
}

func loadOverdue(h *Handler, ctx context.Context, today civil.Date) error {
	_, err := seedLoan(ctx, h.Store, "overdue-001", "Suresh Kumar", engine.LoanSAO, 60000, 12, calendar.AddMonths(today, -14))
	return err
}

func loadSociety(h *Handler, ctx context.Context, today civil.Date) error {
	loaders := []func(*Handler, context.Context, civil.Date) error{
		loadCropSeason, loadRateSwitch, loadTractorEMI, loadDairy, loadOverdue,
	}
	for _, load := range loaders {
		if err := load(h, ctx, today); err != nil {
			return err
		}
	}
	return h.Store.CreateLoan(ctx, loanbook.Loan{
		ID:           "pending-001",
		FarmerName:   "Anil Goud",
		LoanType:     engine.LoanRythuNethany,
		Principal:    decimal.NewFromInt(200000),
		TenureMonths: 60,
		Status:       loanbook.StatusPending,
	})
}
