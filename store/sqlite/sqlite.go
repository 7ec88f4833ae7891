/*
Package sqlite provides a SQLite-backed implementation of loanbook.Store.

PURPOSE:
  Persists loans, their append-only transaction history and the daily
  accrual log. The calculator reads terms and history from here and hands
  them to the engine; nothing the engine computes is written back except
  the daily accrual rows.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the transactions table
  - Idempotency keys are UNIQUE; a retried write is rejected, not doubled

KEY TABLES:
  loans:          Loan terms and status
  transactions:   Immutable disbursement/payment log
  accrual_runs:   One completed row per accrual date
  daily_accruals: One row per loan per accrual date

MONEY AND DATES:
  Amounts are stored as decimal strings so no float rounding ever touches
  them. Calendar dates are stored as YYYY-MM-DD, which sorts correctly as
  text.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/loans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - loanbook/loanbook.go: Store interface
  - loanbook/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// Store implements loanbook.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ loanbook.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		farmer_name TEXT NOT NULL DEFAULT '',
		loan_type TEXT NOT NULL,
		principal TEXT NOT NULL,
		tenure_months INTEGER NOT NULL,
		disbursement_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loans_status
		ON loans(status);

	-- Transactions (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		tx_date TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		reference TEXT,
		idempotency_key TEXT UNIQUE,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Ledger replay reads a loan's history in date order (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_loan_date
		ON transactions(loan_id, tx_date, seq);

	CREATE TABLE IF NOT EXISTS accrual_runs (
		id TEXT PRIMARY KEY,
		accrual_date TEXT NOT NULL,
		status TEXT NOT NULL,
		loans_processed INTEGER NOT NULL DEFAULT 0,
		total_interest TEXT NOT NULL DEFAULT '0',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	-- A date can be completed once; failed attempts may repeat
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accrual_runs_completed
		ON accrual_runs(accrual_date) WHERE status = 'completed';

	CREATE TABLE IF NOT EXISTS daily_accruals (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES accrual_runs(id),
		loan_id TEXT NOT NULL REFERENCES loans(id),
		accrual_date TEXT NOT NULL,
		principal TEXT NOT NULL,
		rate TEXT NOT NULL,
		interest TEXT NOT NULL,
		UNIQUE(loan_id, accrual_date)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOANS
// =============================================================================

// CreateLoan inserts a loan.
func (s *Store) CreateLoan(ctx context.Context, loan loanbook.Loan) error {
	if err := loan.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO loans (id, farmer_name, loan_type, principal, tenure_months,
			disbursement_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		loan.ID,
		loan.FarmerName,
		loan.LoanType,
		loan.Principal.String(),
		loan.TenureMonths,
		nullDate(loan.DisbursementDate),
		loan.Status,
		loan.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return loanbook.ErrDuplicateLoan
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

// GetLoan returns a loan by ID.
func (s *Store) GetLoan(ctx context.Context, id loanbook.LoanID) (loanbook.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, farmer_name, loan_type, principal, tenure_months,
		       disbursement_date, status, created_at
		FROM loans WHERE id = ?
	`
	loan, err := scanLoan(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return loanbook.Loan{}, loanbook.ErrLoanNotFound
	}
	return loan, err
}

// ListLoans returns every loan ordered by creation.
func (s *Store) ListLoans(ctx context.Context) ([]loanbook.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, farmer_name, loan_type, principal, tenure_months,
		       disbursement_date, status, created_at
		FROM loans
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	loans := []loanbook.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (loanbook.Loan, error) {
	var (
		loan         loanbook.Loan
		principal    string
		disbursement sql.NullString
		createdAt    string
	)
	err := row.Scan(&loan.ID, &loan.FarmerName, &loan.LoanType, &principal, &loan.TenureMonths,
		&disbursement, &loan.Status, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return loan, err
		}
		return loan, fmt.Errorf("failed to scan loan: %w", err)
	}
	if loan.Principal, err = decimal.NewFromString(principal); err != nil {
		return loan, fmt.Errorf("loan %s has corrupt principal %q: %w", loan.ID, principal, err)
	}
	if loan.DisbursementDate, err = parseNullDate(disbursement); err != nil {
		return loan, fmt.Errorf("loan %s: %w", loan.ID, err)
	}
	loan.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return loan, nil
}

// =============================================================================
// TRANSACTIONS (append-only)
// =============================================================================

// AppendTransaction adds a transaction to a loan's history.
func (s *Store) AppendTransaction(ctx context.Context, tx loanbook.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", tx.LoanID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check loan: %w", err)
	}
	if exists == 0 {
		return loanbook.ErrLoanNotFound
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions
		(id, loan_id, tx_date, tx_type, amount, reference, idempotency_key, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE loan_id = ?), ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.LoanID,
		tx.Date.String(),
		tx.Type,
		tx.Amount.String(),
		nullString(tx.Reference),
		nullString(tx.IdempotencyKey),
		tx.LoanID,
		tx.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return loanbook.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns a loan's history ordered by date, then insertion.
func (s *Store) Transactions(ctx context.Context, id loanbook.LoanID) ([]loanbook.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM loans WHERE id = ?", id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check loan: %w", err)
	}
	if exists == 0 {
		return nil, loanbook.ErrLoanNotFound
	}

	query := `
		SELECT id, loan_id, tx_date, tx_type, amount, reference, idempotency_key, created_at
		FROM transactions
		WHERE loan_id = ?
		ORDER BY tx_date ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []loanbook.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (loanbook.Transaction, error) {
	var (
		tx             loanbook.Transaction
		txDate         string
		txType         string
		amount         string
		reference      sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)
	err := rows.Scan(&tx.ID, &tx.LoanID, &txDate, &txType, &amount, &reference, &idempotencyKey, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if tx.Date, err = civil.ParseDate(txDate); err != nil {
		return tx, fmt.Errorf("transaction %s has corrupt date %q: %w", tx.ID, txDate, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("transaction %s has corrupt amount %q: %w", tx.ID, amount, err)
	}
	tx.Type = engine.TransactionType(txType)
	tx.Reference = reference.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return tx, nil
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

// RecordAccrualRun stores a run and its accrual rows in one transaction.
func (s *Store) RecordAccrualRun(ctx context.Context, run loanbook.AccrualRun, accruals []loanbook.DailyAccrual) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var completedAt sql.NullString
	if !run.CompletedAt.IsZero() {
		completedAt = sql.NullString{String: run.CompletedAt.Format(time.RFC3339Nano), Valid: true}
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO accrual_runs (id, accrual_date, status, loans_processed, total_interest,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.AccrualDate.String(), run.Status, run.LoansProcessed, run.TotalInterest.String(),
		nullString(run.Error), run.StartedAt.Format(time.RFC3339Nano), completedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return loanbook.ErrAccrualRunExists
		}
		return fmt.Errorf("failed to record accrual run: %w", err)
	}

	for _, a := range accruals {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO daily_accruals (id, run_id, loan_id, accrual_date, principal, rate, interest)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			a.ID, run.ID, a.LoanID, a.AccrualDate.String(),
			a.Principal.String(), a.Rate.String(), a.Interest.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return loanbook.ErrAccrualRunExists
			}
			return fmt.Errorf("failed to record daily accrual: %w", err)
		}
	}

	return sqlTx.Commit()
}

// HasAccrualRun reports whether the date has a completed run.
func (s *Store) HasAccrualRun(ctx context.Context, date civil.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accrual_runs WHERE accrual_date = ? AND status = 'completed'",
		date.String(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AccrualRuns returns runs, newest accrual date first.
func (s *Store) AccrualRuns(ctx context.Context, limit int) ([]loanbook.AccrualRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, accrual_date, status, loans_processed, total_interest, error, started_at, completed_at
		FROM accrual_runs
		ORDER BY accrual_date DESC, started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []loanbook.AccrualRun{}
	for rows.Next() {
		var (
			r                   loanbook.AccrualRun
			accrualDate, total  string
			runErr, completedAt sql.NullString
			startedAt           string
		)
		if err := rows.Scan(&r.ID, &accrualDate, &r.Status, &r.LoansProcessed, &total,
			&runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if r.AccrualDate, err = civil.ParseDate(accrualDate); err != nil {
			return nil, fmt.Errorf("accrual run %s has corrupt date: %w", r.ID, err)
		}
		r.TotalInterest, _ = decimal.NewFromString(total)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DailyAccruals returns a loan's accrual rows ordered by date.
func (s *Store) DailyAccruals(ctx context.Context, id loanbook.LoanID) ([]loanbook.DailyAccrual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, loan_id, accrual_date, principal, rate, interest
		FROM daily_accruals
		WHERE loan_id = ?
		ORDER BY accrual_date ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []loanbook.DailyAccrual{}
	for rows.Next() {
		var (
			a                               loanbook.DailyAccrual
			date, principal, rate, interest string
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.LoanID, &date, &principal, &rate, &interest); err != nil {
			return nil, err
		}
		if a.AccrualDate, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("daily accrual %s has corrupt date: %w", a.ID, err)
		}
		a.Principal, _ = decimal.NewFromString(principal)
		a.Rate, _ = decimal.NewFromString(rate)
		a.Interest, _ = decimal.NewFromString(interest)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo reloads).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"daily_accruals", "accrual_runs", "transactions", "loans"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d civil.Date) sql.NullString {
	if d == (civil.Date{}) {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (civil.Date, error) {
	if !s.Valid || s.String == "" {
		return civil.Date{}, nil
	}
	return civil.ParseDate(s.String)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
