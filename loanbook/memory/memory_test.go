package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
	"github.com/pacs/loan-engine/loanbook/loanbooktest"
	"github.com/pacs/loan-engine/loanbook/memory"
)

func TestMemoryStore(t *testing.T) {
	loanbooktest.Run(t, func(t *testing.T) loanbook.Store {
		return memory.NewMemory()
	})
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	// GIVEN: Many goroutines posting payments to one loan
	// THEN: Every payment lands and the history stays date ordered
	ctx := context.Background()
	s := memory.NewMemory()
	require.NoError(t, s.CreateLoan(ctx, loanbooktest.ActiveLoan("L-1")))

	var wg sync.WaitGroup
	for i := 1; i <= 28; i++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			err := s.AppendTransaction(ctx, loanbook.Transaction{
				ID:     loanbook.NewTransactionID(),
				LoanID: "L-1",
				Date:   civil.Date{Year: 2024, Month: time.February, Day: d},
				Type:   engine.TxPayment,
				Amount: decimal.NewFromInt(100),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	txs, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	require.Len(t, txs, 28)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Date.Before(txs[i-1].Date))
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemory()
	require.NoError(t, s.CreateLoan(ctx, loanbooktest.ActiveLoan("L-1")))
	require.NoError(t, s.AppendTransaction(ctx, loanbook.Transaction{
		ID:     "T-1",
		LoanID: "L-1",
		Date:   civil.Date{Year: 2024, Month: time.March, Day: 1},
		Type:   engine.TxPayment,
		Amount: decimal.NewFromInt(100),
	}))

	txs, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	txs[0].Amount = decimal.NewFromInt(1)

	again, err := s.Transactions(ctx, "L-1")
	require.NoError(t, err)
	assert.Equal(t, "100", again[0].Amount.String())
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemory()
	require.NoError(t, s.CreateLoan(ctx, loanbooktest.ActiveLoan("L-1")))
	require.NoError(t, s.AppendTransaction(ctx, loanbook.Transaction{
		ID:             "T-1",
		LoanID:         "L-1",
		Date:           civil.Date{Year: 2024, Month: time.March, Day: 1},
		Type:           engine.TxPayment,
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "k-1",
	}))

	require.NoError(t, s.Reset(ctx))

	loans, err := s.ListLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)

	// Keys are forgotten with the data they guarded.
	require.NoError(t, s.CreateLoan(ctx, loanbooktest.ActiveLoan("L-1")))
	assert.NoError(t, s.AppendTransaction(ctx, loanbook.Transaction{
		ID:             "T-2",
		LoanID:         "L-1",
		Date:           civil.Date{Year: 2024, Month: time.March, Day: 1},
		Type:           engine.TxPayment,
		Amount:         decimal.NewFromInt(100),
		IdempotencyKey: "k-1",
	}))
}
