// Package loanbooktest holds the behaviour every loanbook.Store must show.
// Each implementation runs the same suite from its own _test.go file.
package loanbooktest

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) loanbook.Store

// Run executes the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s loanbook.Store)
	}{
		{"CreateAndGetLoan", testCreateAndGetLoan},
		{"DuplicateLoanRejected", testDuplicateLoan},
		{"InvalidLoanRejected", testInvalidLoan},
		{"UnknownLoanNotFound", testUnknownLoan},
		{"ListLoansInCreationOrder", testListLoans},
		{"TransactionsSortedByDate", testTransactionsSorted},
		{"DuplicateIdempotencyKeyRejected", testIdempotency},
		{"TransactionOnUnknownLoan", testTransactionUnknownLoan},
		{"AccrualRunOncePerDate", testAccrualRunOnce},
		{"FailedRunDoesNotBlockRetry", testFailedRunRetry},
		{"AccrualRunsNewestFirst", testAccrualRunsOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

// ActiveLoan returns a disbursed SAO loan with the given ID.
func ActiveLoan(id loanbook.LoanID) loanbook.Loan {
	return loanbook.Loan{
		ID:               id,
		FarmerName:       "Ramaiah",
		LoanType:         engine.LoanSAO,
		Principal:        decimal.NewFromInt(100000),
		TenureMonths:     12,
		DisbursementDate: day(2024, time.January, 1),
		Status:           loanbook.StatusActive,
		CreatedAt:        time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
}

func payment(loanID loanbook.LoanID, on civil.Date, amount int64, key string) loanbook.Transaction {
	return loanbook.Transaction{
		ID:             loanbook.NewTransactionID(),
		LoanID:         loanID,
		Date:           on,
		Type:           engine.TxPayment,
		Amount:         decimal.NewFromInt(amount),
		IdempotencyKey: key,
	}
}

func run(on civil.Date, status loanbook.RunStatus) loanbook.AccrualRun {
	return loanbook.AccrualRun{
		ID:            loanbook.NewRunID(),
		AccrualDate:   on,
		Status:        status,
		TotalInterest: decimal.Zero,
		StartedAt:     time.Now().UTC(),
	}
}

// =============================================================================
// LOANS
// =============================================================================

func testCreateAndGetLoan(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	loan := ActiveLoan("L-1")
	require.NoError(t, s.CreateLoan(ctx, loan))

	got, err := s.GetLoan(ctx, "L-1")
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)
	assert.Equal(t, loan.FarmerName, got.FarmerName)
	assert.Equal(t, loan.LoanType, got.LoanType)
	assert.True(t, loan.Principal.Equal(got.Principal))
	assert.Equal(t, loan.TenureMonths, got.TenureMonths)
	assert.Equal(t, loan.DisbursementDate, got.DisbursementDate)
	assert.Equal(t, loanbook.StatusActive, got.Status)
	assert.True(t, got.IsDisbursed())
}

func testDuplicateLoan(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLoan(ctx, ActiveLoan("L-1")))

	err := s.CreateLoan(ctx, ActiveLoan("L-1"))
	assert.ErrorIs(t, err, loanbook.ErrDuplicateLoan)
	assert.True(t, loanbook.IsConflict(err))
}

func testInvalidLoan(t *testing.T, s loanbook.Store) {
	loan := ActiveLoan("L-1")
	loan.DisbursementDate = civil.Date{}

	err := s.CreateLoan(context.Background(), loan)
	assert.ErrorIs(t, err, loanbook.ErrInvalidLoan)
}

func testUnknownLoan(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	_, err := s.GetLoan(ctx, "missing")
	assert.True(t, loanbook.IsNotFound(err))

	_, err = s.Transactions(ctx, "missing")
	assert.True(t, loanbook.IsNotFound(err))
}

func testListLoans(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	first := ActiveLoan("L-b")
	second := ActiveLoan("L-a")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	pending := ActiveLoan("L-c")
	pending.Status = loanbook.StatusPending
	pending.DisbursementDate = civil.Date{}
	pending.CreatedAt = first.CreatedAt.Add(2 * time.Hour)

	require.NoError(t, s.CreateLoan(ctx, first))
	require.NoError(t, s.CreateLoan(ctx, second))
	require.NoError(t, s.CreateLoan(ctx, pending))

	loans, err := s.ListLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, loanbook.LoanID("L-b"), loans[0].ID)
	assert.Equal(t, loanbook.LoanID("L-a"), loans[1].ID)
	assert.Equal(t, loanbook.LoanID("L-c"), loans[2].ID)
	assert.False(t, loans[2].IsDisbursed())
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func testTransactionsSorted(t *testing.T, s loanbook.Store) {
	// GIVEN: Payments appended out of date order
	// THEN: History comes back by date, same-day entries in append order
	ctx := context.Background()
	require.NoError(t, s.CreateLoan(ctx, ActiveLoan("L-1")))

	march := payment("L-1", day(2024, time.March, 1), 3000, "")
	febA := payment("L-1", day(2024, time.February, 1), 1000, "")
	febB := payment("L-1", day(2024, time.February, 1), 2000, "")
	febB.Reference = "RCPT-2"
	for _, tx := range []loanbook.Transaction{march, febA, febB} {
		require.NoError(t, s.AppendTransaction(ctx, tx))
	}

	txs, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, febA.ID, txs[0].ID)
	assert.Equal(t, febB.ID, txs[1].ID)
	assert.Equal(t, "RCPT-2", txs[1].Reference)
	assert.Equal(t, march.ID, txs[2].ID)
	assert.Equal(t, engine.TxPayment, txs[2].Type)
	assert.Equal(t, "3000", txs[2].Amount.String())

	converted := loanbook.EngineTransactions(txs)
	require.Len(t, converted, 3)
	assert.Equal(t, day(2024, time.February, 1), converted[0].Date)
}

func testIdempotency(t *testing.T, s loanbook.Store) {
	// GIVEN: A payment posted with an idempotency key
	// WHEN: The same key is posted again
	// THEN: The retry is rejected and history holds one payment
	ctx := context.Background()
	require.NoError(t, s.CreateLoan(ctx, ActiveLoan("L-1")))

	require.NoError(t, s.AppendTransaction(ctx, payment("L-1", day(2024, time.May, 1), 500, "key-1")))
	err := s.AppendTransaction(ctx, payment("L-1", day(2024, time.May, 1), 500, "key-1"))
	assert.ErrorIs(t, err, loanbook.ErrDuplicateIdempotencyKey)

	// Empty keys never collide
	require.NoError(t, s.AppendTransaction(ctx, payment("L-1", day(2024, time.May, 2), 100, "")))
	require.NoError(t, s.AppendTransaction(ctx, payment("L-1", day(2024, time.May, 3), 100, "")))

	txs, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func testTransactionUnknownLoan(t *testing.T, s loanbook.Store) {
	err := s.AppendTransaction(context.Background(), payment("ghost", day(2024, time.May, 1), 500, ""))
	assert.ErrorIs(t, err, loanbook.ErrLoanNotFound)
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

func testAccrualRunOnce(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateLoan(ctx, ActiveLoan("L-1")))
	on := day(2024, time.June, 1)

	r := run(on, loanbook.RunCompleted)
	r.LoansProcessed = 1
	r.TotalInterest = decimal.RequireFromString("19.18")
	accrual := loanbook.DailyAccrual{
		ID:          "A-1",
		RunID:       r.ID,
		LoanID:      "L-1",
		AccrualDate: on,
		Principal:   decimal.NewFromInt(100000),
		Rate:        decimal.NewFromInt(7),
		Interest:    decimal.RequireFromString("19.18"),
	}
	require.NoError(t, s.RecordAccrualRun(ctx, r, []loanbook.DailyAccrual{accrual}))

	has, err := s.HasAccrualRun(ctx, on)
	require.NoError(t, err)
	assert.True(t, has)

	err = s.RecordAccrualRun(ctx, run(on, loanbook.RunCompleted), nil)
	assert.ErrorIs(t, err, loanbook.ErrAccrualRunExists)

	accruals, err := s.DailyAccruals(ctx, "L-1")
	require.NoError(t, err)
	require.Len(t, accruals, 1)
	assert.Equal(t, "19.18", accruals[0].Interest.StringFixed(2))
	assert.Equal(t, on, accruals[0].AccrualDate)
}

func testFailedRunRetry(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	on := day(2024, time.June, 2)

	failed := run(on, loanbook.RunFailed)
	failed.Error = "store unavailable"
	require.NoError(t, s.RecordAccrualRun(ctx, failed, nil))

	has, err := s.HasAccrualRun(ctx, on)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.RecordAccrualRun(ctx, run(on, loanbook.RunCompleted), nil))
	has, err = s.HasAccrualRun(ctx, on)
	require.NoError(t, err)
	assert.True(t, has)
}

func testAccrualRunsOrder(t *testing.T, s loanbook.Store) {
	ctx := context.Background()
	for _, d := range []int{3, 1, 2} {
		require.NoError(t, s.RecordAccrualRun(ctx, run(day(2024, time.July, d), loanbook.RunCompleted), nil))
	}

	runs, err := s.AccrualRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, day(2024, time.July, 3), runs[0].AccrualDate)
	assert.Equal(t, day(2024, time.July, 2), runs[1].AccrualDate)

	all, err := s.AccrualRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
