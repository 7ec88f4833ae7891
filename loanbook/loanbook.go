/*
Package loanbook is the loan-data collaborator the calculator reads from.

PURPOSE:
  The engine is pure: it needs a loan's terms and transaction history and
  nothing else. This package defines where those come from. The real loan
  service owns this data; the stores here (SQLite and in-memory) stand in
  for it so the calculator can run end to end.

APPEND-ONLY CONTRACT:
  Transactions are never updated or deleted. A wrong payment is corrected
  by the loan service, not here. Every write may carry an idempotency key;
  a repeated key is rejected so retried requests never post twice.

DAILY ACCRUALS:
  The accrual job records one DailyAccrual per active loan per day and one
  AccrualRun per day. A run date can only be recorded once.

IMPLEMENTATIONS:
  - store/sqlite: SQLite-backed
  - loanbook/memory: in-memory for tests and demos

SEE ALSO:
  - engine/types.go: LoanTerms
  - api/scheduler.go: the daily accrual job
*/
package loanbook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrDuplicateLoan           = errors.New("loan already exists")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrAccrualRunExists        = errors.New("accrual already run for date")
	ErrInvalidLoan             = errors.New("invalid loan")
)

// IsNotFound returns true for lookups of missing records.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound)
}

// IsConflict returns true for writes that collide with existing records.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateLoan) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAccrualRunExists)
}

// =============================================================================
// LOANS
// =============================================================================

type LoanID string

// LoanStatus follows a loan from application to closure.
type LoanStatus string

const (
	StatusPending LoanStatus = "pending"
	StatusActive  LoanStatus = "active"
	StatusClosed  LoanStatus = "closed"
)

// Loan is a loan as the book records it.
type Loan struct {
	ID               LoanID
	FarmerName       string
	LoanType         engine.LoanType
	Principal        decimal.Decimal
	TenureMonths     int
	DisbursementDate civil.Date
	Status           LoanStatus
	CreatedAt        time.Time
}

// NewLoanID returns a fresh random loan ID.
func NewLoanID() LoanID {
	return LoanID(uuid.NewString())
}

// Terms extracts the engine's view of the loan.
func (l Loan) Terms() engine.LoanTerms {
	return engine.LoanTerms{
		LoanType:         l.LoanType,
		Principal:        l.Principal,
		TenureMonths:     l.TenureMonths,
		DisbursementDate: l.DisbursementDate,
	}
}

// IsDisbursed reports whether interest can accrue on the loan.
func (l Loan) IsDisbursed() bool {
	return !calendar.IsZero(l.DisbursementDate)
}

// Validate checks the fields every store requires.
func (l Loan) Validate() error {
	switch {
	case l.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidLoan)
	case l.LoanType == "":
		return fmt.Errorf("%w: loan type is required", ErrInvalidLoan)
	case !l.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", ErrInvalidLoan)
	case l.TenureMonths <= 0:
		return fmt.Errorf("%w: tenure must be positive", ErrInvalidLoan)
	case l.Status == StatusActive && !l.IsDisbursed():
		return fmt.Errorf("%w: active loan needs a disbursement date", ErrInvalidLoan)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionID string

// Transaction is one money movement on a loan.
type Transaction struct {
	ID             TransactionID
	LoanID         LoanID
	Date           civil.Date
	Type           engine.TransactionType
	Amount         decimal.Decimal
	Reference      string
	IdempotencyKey string
	CreatedAt      time.Time
}

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// EngineTransactions converts stored transactions to engine input.
func EngineTransactions(txs []Transaction) []engine.Transaction {
	out := make([]engine.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = engine.Transaction{
			Date:      tx.Date,
			Type:      tx.Type,
			Amount:    tx.Amount,
			Reference: tx.Reference,
		}
	}
	return out
}

// =============================================================================
// DAILY ACCRUALS
// =============================================================================

// DailyAccrual is one day of interest on one loan.
type DailyAccrual struct {
	ID          string
	RunID       string
	LoanID      LoanID
	AccrualDate civil.Date
	Principal   decimal.Decimal
	Rate        decimal.Decimal
	Interest    decimal.Decimal
}

// RunStatus is the outcome of an accrual run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AccrualRun records one execution of the daily accrual job.
type AccrualRun struct {
	ID             string
	AccrualDate    civil.Date
	Status         RunStatus
	LoansProcessed int
	TotalInterest  decimal.Decimal
	Error          string
	StartedAt      time.Time
	CompletedAt    time.Time
}

// NewRunID returns a fresh random run ID.
func NewRunID() string {
	return uuid.NewString()
}

// =============================================================================
// STORE
// =============================================================================

// Store persists loans, their transactions and daily accruals.
type Store interface {
	// CreateLoan inserts a loan. ErrDuplicateLoan if the ID exists.
	CreateLoan(ctx context.Context, loan Loan) error

	// GetLoan returns ErrLoanNotFound for unknown IDs.
	GetLoan(ctx context.Context, id LoanID) (Loan, error)

	// ListLoans returns every loan ordered by creation.
	ListLoans(ctx context.Context) ([]Loan, error)

	// AppendTransaction adds a transaction. This is the only write on the
	// transaction log; there is no update and no delete.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// Transactions returns a loan's history ordered by date, then insertion.
	Transactions(ctx context.Context, id LoanID) ([]Transaction, error)

	// RecordAccrualRun stores a run and its accruals atomically.
	// ErrAccrualRunExists if a completed run for the date exists.
	RecordAccrualRun(ctx context.Context, run AccrualRun, accruals []DailyAccrual) error

	// HasAccrualRun reports whether a completed run exists for the date.
	HasAccrualRun(ctx context.Context, date civil.Date) (bool, error)

	// AccrualRuns returns up to limit runs, newest accrual date first.
	AccrualRuns(ctx context.Context, limit int) ([]AccrualRun, error)

	// DailyAccruals returns a loan's accruals ordered by date.
	DailyAccruals(ctx context.Context, id LoanID) ([]DailyAccrual, error)
}
