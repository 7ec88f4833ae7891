/*
handlers.go - HTTP API handlers for the loan book, schemes and admin jobs

PURPOSE:
  Exposes the loan engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine. The calculator
  endpoints live in calculator.go; this file owns the Handler, the loan
  book, the scheme table and the admin jobs.

ENDPOINTS:
  Loans:
    GET    /api/loans                          List loans
    POST   /api/loans                          Register a loan
    GET    /api/loans/{id}                     Get loan
    GET    /api/loans/{id}/transactions        Transaction history
    POST   /api/loans/{id}/transactions        Post disbursement/payment
    GET    /api/loans/{id}/accruals            Daily accrual log

  Admin:
    POST   /api/admin/run-daily-accrual        Run the accrual job for a date
    GET    /api/admin/accrual-history          Recent accrual runs

  Scenarios:
    GET    /api/scenarios                      List demo scenarios
    POST   /api/scenarios/load                 Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: loan book (terms + transaction history)
  - Rates: the scheme table, the engine's only configuration
  - Clock: what "today" means for defaulted dates
  - Explainer: human text attached to calculator responses

REQUEST FLOW:
  1. Parse HTTP request
  2. Load loan terms and history from the store
  3. Call the engine (pure, synchronous)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON {error, kind, details}:
  - 400: Malformed body or engine input errors
  - 404: Loan not found
  - 409: Duplicate loan or idempotency key
  - 422: Payment exceeds balance, balance would go negative
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Put the service behind the society's
  gateway.

SEE ALSO:
  - calculator.go: /api/smart-calculator endpoints
  - dto.go: Request/response data structures
  - scheduler.go: Daily accrual job
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     loanbook.Store
	Rates     *engine.RateSchedule
	Explainer engine.Explainer
	Clock     calendar.Clock
	Logger    *zap.Logger
	Metrics   *Metrics
	Accruals  *AccrualScheduler

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string

	postings loanLocks
}

// loanLocks hands out one mutex per loan so a ledger replay and the write it
// validates happen without another posting in between.
type loanLocks struct {
	mu    sync.Mutex
	locks map[loanbook.LoanID]*sync.Mutex
}

// lock blocks until the loan's mutex is held and returns its unlock func.
func (l *loanLocks) lock(id loanbook.LoanID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[loanbook.LoanID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// NewHandler creates a handler with a template explainer, the system
// clock and an accrual scheduler that has not been started.
func NewHandler(store loanbook.Store, rates *engine.RateSchedule, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Store:     store,
		Rates:     rates,
		Explainer: engine.TemplateExplainer{},
		Clock:     calendar.SystemClock{},
		Logger:    logger,
		Metrics:   NewMetrics(),
	}
	h.Accruals = NewAccrualScheduler(h)
	return h
}

func (h *Handler) today() civil.Date {
	return calendar.Today(h.Clock)
}

// loadLoan returns a loan's terms and its history in engine form.
func (h *Handler) loadLoan(ctx context.Context, id string) (loanbook.Loan, []engine.Transaction, error) {
	if id == "" {
		return loanbook.Loan{}, nil, errBadRequest("loan_id is required")
	}
	loan, err := h.Store.GetLoan(ctx, loanbook.LoanID(id))
	if err != nil {
		return loanbook.Loan{}, nil, err
	}
	txs, err := h.Store.Transactions(ctx, loan.ID)
	if err != nil {
		return loanbook.Loan{}, nil, fmt.Errorf("failed to load transactions for %s: %w", loan.ID, err)
	}
	return loan, loanbook.EngineTransactions(txs), nil
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans returns all loans.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Store.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dtos := make([]LoanDTO, len(loans))
	for i, l := range loans {
		dtos[i] = toLoanDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLoan returns a single loan.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Store.GetLoan(r.Context(), loanbook.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoanDTO(loan))
}

// CreateLoan registers a loan. The loan type must be configured and the
// tenure within the scheme's limit.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	scheme, err := h.Rates.Scheme(engine.LoanType(req.LoanType))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.TenureMonths > scheme.MaxTenureMonths {
		h.writeError(w, r, errBadRequest(fmt.Sprintf("%s allows at most %d months", scheme.DisplayName, scheme.MaxTenureMonths)))
		return
	}

	loan := loanbook.Loan{
		ID:           loanbook.LoanID(req.ID),
		FarmerName:   req.FarmerName,
		LoanType:     scheme.LoanType,
		Principal:    decimal.NewFromFloat(req.PrincipalAmount),
		TenureMonths: req.TenureMonths,
		Status:       loanbook.StatusPending,
	}
	if loan.ID == "" {
		loan.ID = loanbook.NewLoanID()
	}
	if req.DisbursementDate != nil {
		d, err := parseDate("disbursement_date", *req.DisbursementDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		loan.DisbursementDate = d
		loan.Status = loanbook.StatusActive
	}

	if err := h.Store.CreateLoan(r.Context(), loan); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("loan created",
		zap.String("loan_id", string(loan.ID)),
		zap.String("loan_type", string(loan.LoanType)),
		zap.String("principal", loan.Principal.StringFixed(2)))

	created, err := h.Store.GetLoan(r.Context(), loan.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanDTO(created))
}

// GetTransactions returns a loan's history in date order.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Store.Transactions(r.Context(), loanbook.LoanID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction appends a disbursement or payment. The new history is
// replayed before the write so a payment that would overdraw the loan is
// rejected with 422 instead of corrupting every later statement. Postings to
// one loan are serialized from the history read to the append.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loanID := chi.URLParam(r, "id")
	unlock := h.postings.lock(loanbook.LoanID(loanID))
	defer unlock()

	loan, history, err := h.loadLoan(ctx, loanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txType := engine.TransactionType(req.Type)
	if txType != engine.TxDisbursement && txType != engine.TxPayment {
		h.writeError(w, r, errBadRequest(fmt.Sprintf("type must be %q or %q", engine.TxDisbursement, engine.TxPayment)))
		return
	}

	tx := loanbook.Transaction{
		ID:             loanbook.NewTransactionID(),
		LoanID:         loan.ID,
		Date:           date,
		Type:           txType,
		Amount:         decimal.NewFromFloat(req.Amount),
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	}

	if !loan.IsDisbursed() {
		h.writeError(w, r, errBadRequest("loan has not been disbursed"))
		return
	}
	replay := insertByDate(history, engine.Transaction{Date: tx.Date, Type: tx.Type, Amount: tx.Amount, Reference: tx.Reference})
	if _, err := h.Rates.Build(loan.Terms(), replay, engine.LedgerOptions{}); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Store.AppendTransaction(ctx, tx); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("transaction posted",
		zap.String("loan_id", string(loan.ID)),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.StringFixed(2)),
		zap.String("date", tx.Date.String()))

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// insertByDate places tx after every entry dated on or before it, matching
// the store's ordering.
func insertByDate(history []engine.Transaction, tx engine.Transaction) []engine.Transaction {
	out := make([]engine.Transaction, 0, len(history)+1)
	inserted := false
	for _, prev := range history {
		if !inserted && prev.Date.After(tx.Date) {
			out = append(out, tx)
			inserted = true
		}
		out = append(out, prev)
	}
	if !inserted {
		out = append(out, tx)
	}
	return out
}

// GetDailyAccruals returns the accrual log of a loan.
func (h *Handler) GetDailyAccruals(w http.ResponseWriter, r *http.Request) {
	id := loanbook.LoanID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetLoan(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	accruals, err := h.Store.DailyAccruals(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dtos := make([]DailyAccrualDTO, len(accruals))
	for i, a := range accruals {
		dtos[i] = DailyAccrualDTO{
			AccrualDate: a.AccrualDate.String(),
			Principal:   money(a.Principal),
			Rate:        money(a.Rate),
			Interest:    money(a.Interest),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SCHEME HANDLERS
// =============================================================================

// ListSchemes returns the configured loan products.
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	schemes := h.Rates.Schemes().Sorted()
	dtos := make([]SchemeDTO, len(schemes))
	for i, s := range schemes {
		dtos[i] = toSchemeDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunDailyAccrual runs the accrual job for accrual_date (default today).
// Running a date twice returns the first run with already_run set.
func (h *Handler) RunDailyAccrual(w http.ResponseWriter, r *http.Request) {
	var req AccrualRunRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	date := h.today()
	if q := r.URL.Query().Get("accrual_date"); q != "" {
		req.AccrualDate = &q
	}
	if req.AccrualDate != nil {
		d, err := parseDate("accrual_date", *req.AccrualDate)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		date = d
	}

	run, fresh, err := h.Accruals.RunForDate(r.Context(), date)
	if errors.Is(err, ErrAccrualFailed) {
		h.Logger.Error("daily accrual failed", zap.String("accrual_date", date.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Daily accrual failed",
			Kind:    "accrual_failed",
			Details: toAccrualRunDTO(run),
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dto := toAccrualRunDTO(run)
	dto.AlreadyRun = !fresh
	writeJSON(w, http.StatusOK, dto)
}

// ListAccrualRuns returns recent accrual runs, newest first.
func (h *Handler) ListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	limit := 7
	if q := r.URL.Query().Get("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 90 {
			h.writeError(w, r, errBadRequest("days must be between 1 and 90"))
			return
		}
		limit = n
	}

	runs, err := h.Store.AccrualRuns(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]AccrualRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAccrualRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// badRequestError is a malformed request caught before the engine runs.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func parseDate(field, s string) (civil.Date, error) {
	d, err := calendar.ParseDate(s)
	if err != nil {
		return civil.Date{}, errBadRequest(fmt.Sprintf("invalid %s %q (use YYYY-MM-DD)", field, s))
	}
	return d, nil
}

// parseOptionalDate returns def when s is nil.
func parseOptionalDate(field string, s *string, def civil.Date) (civil.Date, error) {
	if s == nil || *s == "" {
		return def, nil
	}
	return parseDate(field, *s)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Kind:    "invalid_request",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps an error to its HTTP status and response body.
func statusFor(err error) (int, ErrorResponse) {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, ErrorResponse{Error: bad.msg, Kind: "invalid_request"}
	case loanbook.IsNotFound(err):
		return http.StatusNotFound, ErrorResponse{Error: "Loan not found", Kind: "not_found", Details: err.Error()}
	case loanbook.IsConflict(err):
		return http.StatusConflict, ErrorResponse{Error: "Conflict", Kind: "conflict", Details: err.Error()}
	case errors.Is(err, loanbook.ErrInvalidLoan):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid loan", Kind: "invalid_request", Details: err.Error()}
	case engine.IsUnprocessable(err):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "Calculation rejected", Kind: string(engine.KindOf(err)), Details: err.Error()}
	case engine.IsClientError(err):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid calculation input", Kind: string(engine.KindOf(err)), Details: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal error", Kind: "internal"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		h.Logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}
