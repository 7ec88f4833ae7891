package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacs/loan-engine/calendar"
	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
	"github.com/pacs/loan-engine/loanbook/loanbooktest"
)

func TestAccrualScheduler_StartRunsImmediately(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	s := ts.h.Accruals
	s.CheckInterval = time.Hour
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		done, err := ts.store.HasAccrualRun(context.Background(), testToday)
		return err == nil && done
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestAccrualScheduler_DisabledDoesNotRun(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")

	s := ts.h.Accruals
	s.Enabled = false
	s.Start()
	s.Stop()

	runs, err := ts.store.AccrualRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestAccrualScheduler_RunNowUsesHandlerClock(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")
	ts.h.Clock = calendar.FixedDate(calendar.MustParseDate("2024-02-01"))

	ts.h.Accruals.RunNow()

	done, err := ts.store.HasAccrualRun(context.Background(), calendar.MustParseDate("2024-02-01"))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRunForDate_AccruesOnOutstandingPrincipal(t *testing.T) {
	// GIVEN: SAO loan of 100000 with 50000 repaid on 2024-01-06
	// WHEN: Accruing 2024-01-06 and 2024-01-05
	// THEN: The payment counts from its own date; interest before it is on 100000

	ts := newTestServer(t)
	ts.seedSAO("L-1")
	ctx := context.Background()
	require.NoError(t, ts.store.AppendTransaction(ctx, loanbook.Transaction{
		ID: "T-1", LoanID: "L-1", Date: calendar.MustParseDate("2024-01-06"),
		Type: engine.TxPayment, Amount: decimal.RequireFromString("50000"),
	}))

	run, fresh, err := ts.h.Accruals.RunForDate(ctx, calendar.MustParseDate("2024-01-06"))
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, loanbook.RunCompleted, run.Status)

	run, _, err = ts.h.Accruals.RunForDate(ctx, calendar.MustParseDate("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "19.18", run.TotalInterest.StringFixed(2))

	accruals, err := ts.store.DailyAccruals(ctx, "L-1")
	require.NoError(t, err)
	require.Len(t, accruals, 2)
	assert.Equal(t, "2024-01-05", accruals[0].AccrualDate.String())
	assert.Equal(t, "100000.00", accruals[0].Principal.StringFixed(2))
	// 50000 paid after five days of interest (95.89): 95.89 clears interest, the rest principal.
	assert.Equal(t, "50095.89", accruals[1].Principal.StringFixed(2))
}

func TestRunForDate_ConcurrentCallsRecordOneRun(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSAO("L-1")
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := ts.h.Accruals.RunForDate(ctx, testToday)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fresh)
	accruals, err := ts.store.DailyAccruals(ctx, "L-1")
	require.NoError(t, err)
	assert.Len(t, accruals, 1)
}

func TestRunForDate_SkipsClosedAndRepaidLoans(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.seedSAO("L-1")

	closed := loanbooktest.ActiveLoan("L-2")
	closed.Status = loanbook.StatusClosed
	require.NoError(t, ts.store.CreateLoan(ctx, closed))

	ts.seedSAO("L-3")
	require.NoError(t, ts.store.AppendTransaction(ctx, loanbook.Transaction{
		ID: "T-1", LoanID: "L-3", Date: calendar.MustParseDate("2024-01-01"),
		Type: engine.TxPayment, Amount: decimal.RequireFromString("100000"),
	}))

	run, _, err := ts.h.Accruals.RunForDate(ctx, testToday)
	require.NoError(t, err)
	assert.Equal(t, 1, run.LoansProcessed)
}
