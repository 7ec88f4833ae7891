/*
scheduler.go - Daily interest accrual job

PURPOSE:
  Records one day of interest for every active loan, once per calendar
  day. The ledger never reads these rows (it recomputes interest from
  history); they are the society's daily interest register and feed the
  accrual metrics.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check accrues "today" per the handler clock
  - A date with a completed run is skipped, so hourly checks are harmless
  - A run is all-or-nothing: if any loan fails, a failed run with no
    accrual rows is recorded and the date can be retried

ACCRUAL RULE:
  For accrual date D, a loan's accrual is the interest on principal
  outstanding at the start of D for the half-open day [D, D+1), at the
  rate in force on D.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunDailyAccrual endpoint (manual trigger)
  - loanbook/loanbook.go: AccrualRun, DailyAccrual
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pacs/loan-engine/engine"
	"github.com/pacs/loan-engine/loanbook"
)

// ErrAccrualFailed wraps the loan error that aborted a run.
var ErrAccrualFailed = errors.New("daily accrual failed")

// AccrualScheduler handles the automated daily accrual.
type AccrualScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running sync.Mutex
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(h *Handler) *AccrualScheduler {
	return &AccrualScheduler{
		Handler:       h,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

func (as *AccrualScheduler) logger() *zap.Logger {
	return as.Handler.Logger.Named("scheduler")
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.logger().Info("disabled, not starting")
		return
	}
	if as.ticker != nil {
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.stop = make(chan struct{})
	as.wg.Add(1)

	go as.run(as.ticker, as.stop)

	as.logger().Info("started", zap.Duration("check_interval", as.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		as.ticker = nil
		as.logger().Info("stopped")
	}
}

func (as *AccrualScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer as.wg.Done()

	// Run immediately on start
	as.checkAndProcess()

	for {
		select {
		case <-ticker.C:
			as.checkAndProcess()
		case <-stop:
			return
		}
	}
}

func (as *AccrualScheduler) checkAndProcess() {
	date := as.Handler.today()
	run, fresh, err := as.RunForDate(context.Background(), date)
	if err != nil {
		as.logger().Error("accrual run failed", zap.String("accrual_date", date.String()), zap.Error(err))
		return
	}
	if fresh {
		as.logger().Info("accrual run completed",
			zap.String("accrual_date", date.String()),
			zap.Int("loans", run.LoansProcessed),
			zap.String("total_interest", run.TotalInterest.StringFixed(2)))
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (as *AccrualScheduler) GetNextRunTime() time.Time {
	return as.Handler.Clock.Now().Add(as.CheckInterval)
}

// RunForDate accrues one day of interest for every active loan. fresh is
// false when the date already had a completed run, which is returned
// unchanged.
func (as *AccrualScheduler) RunForDate(ctx context.Context, date civil.Date) (run loanbook.AccrualRun, fresh bool, err error) {
	as.running.Lock()
	defer as.running.Unlock()

	store := as.Handler.Store
	done, err := store.HasAccrualRun(ctx, date)
	if err != nil {
		return loanbook.AccrualRun{}, false, fmt.Errorf("failed to check accrual runs: %w", err)
	}
	if done {
		existing, err := as.completedRun(ctx, date)
		return existing, false, err
	}

	run = loanbook.AccrualRun{
		ID:            loanbook.NewRunID(),
		AccrualDate:   date,
		Status:        loanbook.RunCompleted,
		TotalInterest: decimal.Zero,
		StartedAt:     time.Now().UTC(),
	}

	accruals, err := as.accrueAll(ctx, run.ID, date)
	if err != nil {
		run.Status = loanbook.RunFailed
		run.Error = err.Error()
		run.CompletedAt = time.Now().UTC()
		if recErr := store.RecordAccrualRun(ctx, run, nil); recErr != nil {
			as.logger().Error("failed to record failed run", zap.Error(recErr))
		}
		as.Handler.Metrics.observeAccrualRun(string(loanbook.RunFailed), 0)
		return run, true, fmt.Errorf("%w for %s: %v", ErrAccrualFailed, date, err)
	}

	for _, a := range accruals {
		run.TotalInterest = run.TotalInterest.Add(a.Interest)
	}
	run.LoansProcessed = len(accruals)
	run.CompletedAt = time.Now().UTC()

	if err := store.RecordAccrualRun(ctx, run, accruals); err != nil {
		if errors.Is(err, loanbook.ErrAccrualRunExists) {
			existing, err := as.completedRun(ctx, date)
			return existing, false, err
		}
		return loanbook.AccrualRun{}, false, fmt.Errorf("failed to record accrual run: %w", err)
	}
	as.Handler.Metrics.observeAccrualRun(string(loanbook.RunCompleted), money(run.TotalInterest))
	return run, true, nil
}

// accrueAll computes the accrual row of every loan that owes principal on date.
func (as *AccrualScheduler) accrueAll(ctx context.Context, runID string, date civil.Date) ([]loanbook.DailyAccrual, error) {
	h := as.Handler
	loans, err := h.Store.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	var accruals []loanbook.DailyAccrual
	for _, loan := range loans {
		if loan.Status != loanbook.StatusActive || !loan.IsDisbursed() || date.Before(loan.DisbursementDate) {
			continue
		}
		txs, err := h.Store.Transactions(ctx, loan.ID)
		if err != nil {
			return nil, fmt.Errorf("loan %s: %w", loan.ID, err)
		}

		ledger, err := h.Rates.Build(loan.Terms(), loanbook.EngineTransactions(txs), engine.LedgerOptions{AsOf: &date})
		if err != nil {
			return nil, fmt.Errorf("loan %s: %w", loan.ID, err)
		}
		principal := ledger.Summary.PrincipalOutstanding
		if !principal.IsPositive() {
			continue
		}

		res, err := h.Rates.AccrueDays(principal, loan.LoanType, loan.DisbursementDate, date, 1)
		if err != nil {
			return nil, fmt.Errorf("loan %s: %w", loan.ID, err)
		}
		accruals = append(accruals, loanbook.DailyAccrual{
			ID:          uuid.NewString(),
			RunID:       runID,
			LoanID:      loan.ID,
			AccrualDate: date,
			Principal:   principal,
			Rate:        res.EffectiveRate(),
			Interest:    res.TotalInterest,
		})
	}
	return accruals, nil
}

func (as *AccrualScheduler) completedRun(ctx context.Context, date civil.Date) (loanbook.AccrualRun, error) {
	runs, err := as.Handler.Store.AccrualRuns(ctx, 0)
	if err != nil {
		return loanbook.AccrualRun{}, err
	}
	for _, r := range runs {
		if r.AccrualDate == date && r.Status == loanbook.RunCompleted {
			return r, nil
		}
	}
	return loanbook.AccrualRun{}, fmt.Errorf("completed run for %s not found", date)
}
