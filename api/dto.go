/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The engine works in
  decimal.Decimal and civil.Date; the wire carries JSON numbers for money
  and YYYY-MM-DD strings for dates. Conversion happens here and nowhere
  else.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Loan book:
    LoanDTO, CreateLoanRequest, TransactionDTO, CreateTransactionRequest

  Calculator:
    InterestForDaysRequest, ProRataInterestRequest, InterestResponse
    EMIScheduleRequest, EMIScheduleResponse, InstallmentDTO
    SimulatePaymentRequest, SimulationResponse
    OverdueRequest, PenaltyResponse
    AmortizationResponse, LedgerResponse, CompareRequest, CompareResponse

  Admin:
    AccrualRunRequest, AccrualRunDTO, DailyAccrualDTO

OPTIONAL FIELDS:
  Optional request fields are pointers so "absent" and "zero" differ.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go, calculator.go: Use these types
*/
package api

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// =============================================================================
// LOAN BOOK
// =============================================================================

// LoanDTO represents a loan in API responses.
type LoanDTO struct {
	ID               string  `json:"id"`
	FarmerName       string  `json:"farmer_name"`
	LoanType         string  `json:"loan_type"`
	PrincipalAmount  float64 `json:"principal_amount"`
	TenureMonths     int     `json:"tenure_months"`
	DisbursementDate string  `json:"disbursement_date,omitempty"`
	MaturityDate     string  `json:"maturity_date,omitempty"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at,omitempty"`
}

// CreateLoanRequest is the request to register a loan. A loan without a
// disbursement date is created pending.
type CreateLoanRequest struct {
	ID               string  `json:"id,omitempty"`
	FarmerName       string  `json:"farmer_name"`
	LoanType         string  `json:"loan_type"`
	PrincipalAmount  float64 `json:"principal_amount"`
	TenureMonths     int     `json:"tenure_months"`
	DisbursementDate *string `json:"disbursement_date,omitempty"`
}

// TransactionDTO represents a stored loan transaction.
type TransactionDTO struct {
	ID        string  `json:"id"`
	LoanID    string  `json:"loan_id"`
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// CreateTransactionRequest posts a disbursement or payment.
type CreateTransactionRequest struct {
	Date           string  `json:"date"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Reference      string  `json:"reference,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// SchemeDTO is a configured loan product.
type SchemeDTO struct {
	LoanType         string  `json:"loan_type"`
	DisplayName      string  `json:"display_name"`
	Method           string  `json:"method"`
	BaseRate         float64 `json:"base_rate"`
	RateAfterYear    float64 `json:"rate_after_year"`
	TransitionMonths int     `json:"transition_months,omitempty"`
	MaxTenureMonths  int     `json:"max_tenure_months"`
	PenalRate        float64 `json:"penal_rate"`
	OverdueRate      float64 `json:"overdue_rate"`
}

// =============================================================================
// CALCULATOR REQUESTS
// =============================================================================

// LoanRequest names a stored loan.
type LoanRequest struct {
	LoanID string `json:"loan_id"`
}

// InterestForDaysRequest prices a number of days either for a stored loan
// (loan_id) or for an ad hoc amount (loan_type + principal_amount).
type InterestForDaysRequest struct {
	LoanID          string   `json:"loan_id,omitempty"`
	LoanType        string   `json:"loan_type,omitempty"`
	PrincipalAmount *float64 `json:"principal_amount,omitempty"`
	Days            int      `json:"days"`
	FromDate        *string  `json:"from_date,omitempty"`
}

// ProRataInterestRequest accrues a stored loan over a date range.
type ProRataInterestRequest struct {
	LoanID   string  `json:"loan_id"`
	FromDate *string `json:"from_date,omitempty"`
	ToDate   *string `json:"to_date,omitempty"`
}

// EMIScheduleRequest asks for installment status as of a date.
type EMIScheduleRequest struct {
	LoanID   string  `json:"loan_id"`
	AsOfDate *string `json:"as_of_date,omitempty"`
}

// SimulatePaymentRequest describes a what-if payment.
type SimulatePaymentRequest struct {
	LoanID         string  `json:"loan_id"`
	PaymentAmount  float64 `json:"payment_amount"`
	PaymentDate    string  `json:"payment_date"`
	SimulationType string  `json:"simulation_type"`
	ReduceEMI      *bool   `json:"reduce_emi,omitempty"`
}

// OverdueRequest prices an overdue amount. overdue-with-penalty needs
// loan_id for the overdue rate; penalty/calculate does not.
type OverdueRequest struct {
	LoanID        string  `json:"loan_id,omitempty"`
	OverdueAmount float64 `json:"overdue_amount"`
	OverdueDays   int     `json:"overdue_days"`
}

// LedgerRequest replays a loan's history.
type LedgerRequest struct {
	LoanID   string  `json:"loan_id"`
	AsOfDate *string `json:"as_of_date,omitempty"`
}

// CompareRequest prices a hypothetical loan under several schemes.
type CompareRequest struct {
	PrincipalAmount float64  `json:"principal_amount"`
	TenureMonths    int      `json:"tenure_months"`
	LoanTypes       []string `json:"loan_types"`
	StartDate       *string  `json:"start_date,omitempty"`
}

// =============================================================================
// CALCULATOR RESPONSES
// =============================================================================

// AccrualPeriodDTO is one constant-rate stretch of an accrual.
type AccrualPeriodDTO struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Days      int     `json:"days"`
	Rate      float64 `json:"rate"`
	Interest  float64 `json:"interest"`
}

// InterestResponse is returned by interest-for-days and pro-rata-interest.
type InterestResponse struct {
	LoanID              string             `json:"loan_id,omitempty"`
	LoanType            string             `json:"loan_type"`
	Principal           float64            `json:"principal"`
	AnnualRate          float64            `json:"annual_rate"`
	FromDate            string             `json:"from_date"`
	ToDate              string             `json:"to_date"`
	Days                int                `json:"days"`
	InterestAmount      float64            `json:"interest_amount"`
	TotalAmount         float64            `json:"total_amount"`
	CrossesRateBoundary bool               `json:"crosses_rate_boundary"`
	Periods             []AccrualPeriodDTO `json:"periods"`
	Explanation         string             `json:"explanation,omitempty"`
}

// InterestTomorrowResponse is the interest owed as of tomorrow.
type InterestTomorrowResponse struct {
	LoanID               string  `json:"loan_id"`
	Date                 string  `json:"date"`
	InterestAmount       float64 `json:"interest_amount"`
	PrincipalOutstanding float64 `json:"principal_outstanding"`
	TotalPayable         float64 `json:"total_payable"`
}

// ProjectionPointDTO is the payable position on one date.
type ProjectionPointDTO struct {
	Label                string  `json:"label"`
	Date                 string  `json:"date"`
	DaysFromToday        int     `json:"days_from_today"`
	PrincipalOutstanding float64 `json:"principal_outstanding"`
	InterestOutstanding  float64 `json:"interest_outstanding"`
	TotalPayable         float64 `json:"total_payable"`
}

// ProjectionResponse lists payable amounts at upcoming dates.
type ProjectionResponse struct {
	LoanID      string               `json:"loan_id"`
	Today       string               `json:"today"`
	Projections []ProjectionPointDTO `json:"projections"`
}

// InstallmentDTO is one row of an amortization schedule.
type InstallmentDTO struct {
	InstallmentNo  int     `json:"installment_no"`
	DueDate        string  `json:"due_date"`
	Rate           float64 `json:"rate"`
	OpeningBalance float64 `json:"opening_balance"`
	EMIAmount      float64 `json:"emi_amount"`
	Principal      float64 `json:"principal"`
	Interest       float64 `json:"interest"`
	BalanceAfter   float64 `json:"balance_after"`
	PaidAmount     float64 `json:"paid_amount"`
	Status         string  `json:"status"`
}

// EMIScheduleResponse is a schedule with actual payments applied.
type EMIScheduleResponse struct {
	LoanID             string           `json:"loan_id"`
	AsOfDate           string           `json:"as_of_date"`
	PrincipalAmount    float64          `json:"principal_amount"`
	TotalPaid          float64          `json:"total_paid"`
	OutstandingBalance float64          `json:"outstanding_balance"`
	OverdueCount       int              `json:"overdue_count"`
	OverdueAmount      float64          `json:"overdue_amount"`
	NextDue            *InstallmentDTO  `json:"next_due,omitempty"`
	EMISchedule        []InstallmentDTO `json:"emi_schedule"`
}

// ScheduleSummaryDTO totals a schedule.
type ScheduleSummaryDTO struct {
	Installments  int     `json:"installments"`
	FirstEMI      float64 `json:"first_emi"`
	EMIAfterYear  float64 `json:"emi_after_year"`
	TotalInterest float64 `json:"total_interest"`
	TotalPayment  float64 `json:"total_payment"`
}

// AmortizationResponse is the full baseline schedule of a loan.
type AmortizationResponse struct {
	LoanID               string             `json:"loan_id"`
	LoanType             string             `json:"loan_type"`
	PrincipalAmount      float64            `json:"principal_amount"`
	TenureMonths         int                `json:"tenure_months"`
	EMIAmount            float64            `json:"emi_amount"`
	AmortizationSchedule []InstallmentDTO   `json:"amortization_schedule"`
	Summary              ScheduleSummaryDTO `json:"summary"`
	Explanation          string             `json:"explanation,omitempty"`
}

// SimulationResponse compares the baseline with the simulated schedule.
type SimulationResponse struct {
	LoanID              string           `json:"loan_id"`
	SimulationType      string           `json:"simulation_type"`
	PaymentAmount       float64          `json:"payment_amount"`
	PaymentDate         string           `json:"payment_date"`
	ReduceEMI           bool             `json:"reduce_emi"`
	InstallmentsPaid    int              `json:"installments_paid"`
	OutstandingBefore   float64          `json:"outstanding_before"`
	OutstandingAfter    float64          `json:"outstanding_after"`
	CurrentEMI          float64          `json:"current_emi"`
	NewEMI              float64          `json:"new_emi"`
	EMIReduction        float64          `json:"emi_reduction"`
	RemainingMonths     int              `json:"remaining_months"`
	NewTenureMonths     int              `json:"new_tenure_months"`
	TenureReducedMonths int              `json:"tenure_reduced_months"`
	NewMaturityDate     string           `json:"new_maturity_date,omitempty"`
	InterestBefore      float64          `json:"interest_before"`
	InterestAfter       float64          `json:"interest_after"`
	TotalInterestSaved  float64          `json:"total_interest_saved"`
	LoanClosed          bool             `json:"loan_closed"`
	NewSchedule         []InstallmentDTO `json:"new_schedule"`
	Explanation         string           `json:"explanation,omitempty"`
}

// PenaltyResponse breaks down an overdue amount.
type PenaltyResponse struct {
	LoanID          string  `json:"loan_id,omitempty"`
	OverdueAmount   float64 `json:"overdue_amount"`
	OverdueDays     int     `json:"overdue_days"`
	PenaltyTier     string  `json:"penalty_tier"`
	PenaltyRate     float64 `json:"penalty_rate"`
	PenaltyAmount   float64 `json:"penalty_amount"`
	OverdueRate     float64 `json:"overdue_rate,omitempty"`
	OverdueInterest float64 `json:"overdue_interest,omitempty"`
	TotalDue        float64 `json:"total_due"`
	Explanation     string  `json:"explanation,omitempty"`
}

// LedgerEntryDTO is one statement row.
type LedgerEntryDTO struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Credit      float64 `json:"credit"`
	Debit       float64 `json:"debit"`
	Interest    float64 `json:"interest"`
	Balance     float64 `json:"balance"`
	Reference   string  `json:"reference,omitempty"`
}

// LedgerSummaryDTO totals a statement.
type LedgerSummaryDTO struct {
	AsOfDate             string  `json:"as_of_date"`
	CurrentBalance       float64 `json:"current_balance"`
	TotalDebits          float64 `json:"total_debits"`
	TotalCredits         float64 `json:"total_credits"`
	TotalInterest        float64 `json:"total_interest"`
	PrincipalOutstanding float64 `json:"principal_outstanding"`
	InterestOutstanding  float64 `json:"interest_outstanding"`
}

// LedgerResponse is a replayed loan statement.
type LedgerResponse struct {
	LoanID          string           `json:"loan_id"`
	FarmerName      string           `json:"farmer_name"`
	LoanType        string           `json:"loan_type"`
	PrincipalAmount float64          `json:"principal_amount"`
	LedgerEntries   []LedgerEntryDTO `json:"ledger_entries"`
	Summary         LedgerSummaryDTO `json:"summary"`
}

// EarlyClosureDTO prices closing after the first year.
type EarlyClosureDTO struct {
	LoanType      string  `json:"loan_type"`
	Months        int     `json:"months"`
	EMIAmount     float64 `json:"emi_amount"`
	TotalInterest float64 `json:"total_interest"`
	TotalPayment  float64 `json:"total_payment"`
	Savings       float64 `json:"savings"`
}

// SchemeComparisonDTO is one priced scheme.
type SchemeComparisonDTO struct {
	LoanType        string           `json:"loan_type"`
	DisplayName     string           `json:"display_name,omitempty"`
	Method          string           `json:"method,omitempty"`
	BaseRate        float64          `json:"base_rate"`
	RateAfterYear   float64          `json:"rate_after_year"`
	EMIAmount       float64          `json:"emi_amount"`
	TotalInterest   float64          `json:"total_interest"`
	TotalPayment    float64          `json:"total_payment"`
	ProRataInterest float64          `json:"pro_rata_interest"`
	Eligible        bool             `json:"eligible"`
	Reason          string           `json:"reason,omitempty"`
	EarlyClosure    *EarlyClosureDTO `json:"early_closure,omitempty"`
}

// CompareResponse ranks the requested schemes.
type CompareResponse struct {
	PrincipalAmount        float64               `json:"principal_amount"`
	TenureMonths           int                   `json:"tenure_months"`
	StartDate              string                `json:"start_date"`
	Comparisons            []SchemeComparisonDTO `json:"comparisons"`
	BestScheme             *SchemeComparisonDTO  `json:"best_scheme"`
	Recommendation         string                `json:"recommendation"`
	EarlyClosureComparison []EarlyClosureDTO     `json:"early_closure_comparison"`
	Explanation            string                `json:"explanation,omitempty"`
}

// RateSwitchResponse reports which rate applies to a loan on a date.
type RateSwitchResponse struct {
	LoanID        string  `json:"loan_id"`
	LoanType      string  `json:"loan_type"`
	AsOfDate      string  `json:"as_of_date"`
	DaysElapsed   int     `json:"days_elapsed"`
	CurrentRate   float64 `json:"current_rate"`
	BaseRate      float64 `json:"base_rate"`
	RateAfterYear float64 `json:"rate_after_year"`
	SwitchDate    string  `json:"switch_date,omitempty"`
	Switched      bool    `json:"switched"`
}

// =============================================================================
// ADMIN
// =============================================================================

// AccrualRunRequest triggers the daily accrual for a date (default today).
type AccrualRunRequest struct {
	AccrualDate *string `json:"accrual_date,omitempty"`
}

// AccrualRunDTO is one accrual job execution.
type AccrualRunDTO struct {
	ID             string  `json:"id"`
	AccrualDate    string  `json:"accrual_date"`
	Status         string  `json:"status"`
	LoansProcessed int     `json:"loans_processed"`
	TotalInterest  float64 `json:"total_interest"`
	Error          string  `json:"error,omitempty"`
	StartedAt      string  `json:"started_at"`
	CompletedAt    string  `json:"completed_at,omitempty"`
	AlreadyRun     bool    `json:"already_run,omitempty"`
}

// DailyAccrualDTO is one day of interest on one loan.
type DailyAccrualDTO struct {
	AccrualDate string  `json:"accrual_date"`
	Principal   float64 `json:"principal"`
	Rate        float64 `json:"rate"`
	Interest    float64 `json:"interest"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Loans       int    `json:"loans"`
}

// LoadScenarioRequest picks a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func dateString(d civil.Date) string {
	if d == (civil.Date{}) {
		return ""
	}
	return d.String()
}

func toLoanDTO(l loanbook.Loan) LoanDTO {
	dto := LoanDTO{
		ID:               string(l.ID),
		FarmerName:       l.FarmerName,
		LoanType:         string(l.LoanType),
		PrincipalAmount:  money(l.Principal),
		TenureMonths:     l.TenureMonths,
		DisbursementDate: dateString(l.DisbursementDate),
		Status:           string(l.Status),
	}
	if l.IsDisbursed() {
		dto.MaturityDate = l.Terms().MaturityDate().String()
	}
	if !l.CreatedAt.IsZero() {
		dto.CreatedAt = l.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toTransactionDTO(tx loanbook.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:        string(tx.ID),
		LoanID:    string(tx.LoanID),
		Date:      tx.Date.String(),
		Type:      string(tx.Type),
		Amount:    money(tx.Amount),
		Reference: tx.Reference,
	}
	if !tx.CreatedAt.IsZero() {
		dto.CreatedAt = tx.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toSchemeDTO(s engine.Scheme) SchemeDTO {
	return SchemeDTO{
		LoanType:         string(s.LoanType),
		DisplayName:      s.DisplayName,
		Method:           string(s.Method),
		BaseRate:         money(s.BaseRate()),
		RateAfterYear:    money(s.TerminalRate()),
		TransitionMonths: s.TransitionMonths(),
		MaxTenureMonths:  s.MaxTenureMonths,
		PenalRate:        money(s.PenalRate),
		OverdueRate:      money(s.OverdueRate()),
	}
}

func toInterestResponse(lt engine.LoanType, r engine.AccrualResult) InterestResponse {
	resp := InterestResponse{
		LoanType:            string(lt),
		Principal:           money(r.Principal),
		AnnualRate:          money(r.EffectiveRate()),
		FromDate:            r.From.String(),
		ToDate:              r.To.String(),
		Days:                r.TotalDays,
		InterestAmount:      money(r.TotalInterest),
		TotalAmount:         money(r.Principal.Add(r.TotalInterest)),
		CrossesRateBoundary: r.CrossesRateBoundary,
		Periods:             make([]AccrualPeriodDTO, len(r.Periods)),
	}
	for i, p := range r.Periods {
		resp.Periods[i] = AccrualPeriodDTO{
			StartDate: p.Start.String(),
			EndDate:   p.End.String(),
			Days:      p.Days,
			Rate:      money(p.Rate),
			Interest:  money(p.Interest),
		}
	}
	return resp
}

func toInstallmentDTO(inst engine.Installment) InstallmentDTO {
	status := inst.Status
	if status == "" {
		status = engine.StatusPending
	}
	return InstallmentDTO{
		InstallmentNo:  inst.Number,
		DueDate:        inst.DueDate.String(),
		Rate:           money(inst.Rate),
		OpeningBalance: money(inst.OpeningBalance),
		EMIAmount:      money(inst.EMI),
		Principal:      money(inst.Principal),
		Interest:       money(inst.Interest),
		BalanceAfter:   money(inst.BalanceAfter),
		PaidAmount:     money(inst.PaidAmount),
		Status:         string(status),
	}
}

func toInstallmentDTOs(schedule []engine.Installment) []InstallmentDTO {
	dtos := make([]InstallmentDTO, len(schedule))
	for i, inst := range schedule {
		dtos[i] = toInstallmentDTO(inst)
	}
	return dtos
}

func toSummaryDTO(s engine.ScheduleSummary) ScheduleSummaryDTO {
	return ScheduleSummaryDTO{
		Installments:  s.Installments,
		FirstEMI:      money(s.FirstEMI),
		EMIAfterYear:  money(s.EMIAfterYear),
		TotalInterest: money(s.TotalInterest),
		TotalPayment:  money(s.TotalPayment),
	}
}

func toPenaltyResponse(p engine.PenaltyResult) PenaltyResponse {
	return PenaltyResponse{
		OverdueAmount:   money(p.OverdueAmount),
		OverdueDays:     p.OverdueDays,
		PenaltyTier:     p.TierLabel,
		PenaltyRate:     money(p.PenaltyRate),
		PenaltyAmount:   money(p.PenaltyAmount),
		OverdueRate:     money(p.OverdueRate),
		OverdueInterest: money(p.OverdueInterest),
		TotalDue:        money(p.TotalDue),
	}
}

func toLedgerEntryDTOs(entries []engine.LedgerEntry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LedgerEntryDTO{
			Date:        e.Date.String(),
			Description: e.Description,
			Type:        string(e.Kind),
			Credit:      money(e.Credit),
			Debit:       money(e.Debit),
			Interest:    money(e.Interest),
			Balance:     money(e.RunningBalance),
			Reference:   e.Reference,
		}
	}
	return dtos
}

func toLedgerSummaryDTO(s engine.LedgerSummary) LedgerSummaryDTO {
	return LedgerSummaryDTO{
		AsOfDate:             dateString(s.AsOf),
		CurrentBalance:       money(s.CurrentBalance),
		TotalDebits:          money(s.TotalDebits),
		TotalCredits:         money(s.TotalCredits),
		TotalInterest:        money(s.TotalInterest),
		PrincipalOutstanding: money(s.PrincipalOutstanding),
		InterestOutstanding:  money(s.InterestOutstanding),
	}
}

func toEarlyClosureDTO(lt engine.LoanType, ec engine.EarlyClosure) EarlyClosureDTO {
	return EarlyClosureDTO{
		LoanType:      string(lt),
		Months:        ec.Months,
		EMIAmount:     money(ec.EMI),
		TotalInterest: money(ec.TotalInterest),
		TotalPayment:  money(ec.TotalPayment),
		Savings:       money(ec.Savings),
	}
}

func toSchemeComparisonDTO(c engine.SchemeComparison) SchemeComparisonDTO {
	dto := SchemeComparisonDTO{
		LoanType:        string(c.LoanType),
		DisplayName:     c.DisplayName,
		Method:          string(c.Method),
		BaseRate:        money(c.BaseRate),
		RateAfterYear:   money(c.RateAfterYear),
		EMIAmount:       money(c.EMIAmount),
		TotalInterest:   money(c.TotalInterest),
		TotalPayment:    money(c.TotalPayment),
		ProRataInterest: money(c.ProRataInterest),
		Eligible:        c.Eligible,
		Reason:          c.Reason,
	}
	if c.EarlyClosure != nil {
		ec := toEarlyClosureDTO(c.LoanType, *c.EarlyClosure)
		dto.EarlyClosure = &ec
	}
	return dto
}

func toCompareResponse(c engine.Comparison) CompareResponse {
	resp := CompareResponse{
		PrincipalAmount:        money(c.Principal),
		TenureMonths:           c.TenureMonths,
		StartDate:              c.StartDate.String(),
		Comparisons:            make([]SchemeComparisonDTO, len(c.Results)),
		Recommendation:         c.Recommendation,
		EarlyClosureComparison: []EarlyClosureDTO{},
	}
	for i, r := range c.Results {
		resp.Comparisons[i] = toSchemeComparisonDTO(r)
	}
	if c.BestScheme != nil {
		best := toSchemeComparisonDTO(*c.BestScheme)
		resp.BestScheme = &best
	}
	for _, r := range c.EarlyClosureOptions() {
		resp.EarlyClosureComparison = append(resp.EarlyClosureComparison, toEarlyClosureDTO(r.LoanType, *r.EarlyClosure))
	}
	return resp
}

func toAccrualRunDTO(r loanbook.AccrualRun) AccrualRunDTO {
	dto := AccrualRunDTO{
		ID:             r.ID,
		AccrualDate:    r.AccrualDate.String(),
		Status:         string(r.Status),
		LoansProcessed: r.LoansProcessed,
		TotalInterest:  money(r.TotalInterest),
		Error:          r.Error,
		StartedAt:      r.StartedAt.Format(time.RFC3339),
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
