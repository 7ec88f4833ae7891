package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
	"github.com/pacs/loan-engine/loanbook/loanbooktest"
	"github.com/pacs/loan-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	loanbooktest.Run(t, func(t *testing.T) loanbook.Store {
		return newStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A loan and a payment written to a database file
	// WHEN: The file is reopened
	// THEN: Amounts come back exactly, with no float drift
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "loans.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	loan := loanbooktest.ActiveLoan("L-1")
	loan.Principal = decimal.RequireFromString("123456.78")
	require.NoError(t, s.CreateLoan(ctx, loan))
	require.NoError(t, s.AppendTransaction(ctx, loanbook.Transaction{
		ID:     "T-1",
		LoanID: "L-1",
		Date:   civil.Date{Year: 2024, Month: time.April, Day: 15},
		Type:   engine.TxPayment,
		Amount: decimal.RequireFromString("0.10"),
	}))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetLoan(ctx, "L-1")
	require.NoError(t, err)
	assert.Equal(t, "123456.78", got.Principal.StringFixed(2))

	txs, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("0.1")))
}

func TestSQLiteStore_PendingLoanHasNoDisbursement(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	loan := loanbooktest.ActiveLoan("L-2")
	loan.Status = loanbook.StatusPending
	loan.DisbursementDate = civil.Date{}
	require.NoError(t, s.CreateLoan(ctx, loan))

	got, err := s.GetLoan(ctx, "L-2")
	require.NoError(t, err)
	assert.False(t, got.IsDisbursed())
}

func TestSQLiteStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.CreateLoan(ctx, loanbooktest.ActiveLoan("L-1")))

	require.NoError(t, s.Reset(ctx))

	loans, err := s.ListLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
	require.NoError(t, s.Ping(ctx))
}
