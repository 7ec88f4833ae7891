// Package memory provides an in-memory loanbook.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/pacs/loan-engine/loanbook"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	loans        map[loanbook.LoanID]loanbook.Loan
	order        []loanbook.LoanID
	transactions map[loanbook.LoanID][]loanbook.Transaction
	idempotency  map[string]bool
	runs         []loanbook.AccrualRun
	accruals     map[loanbook.LoanID][]loanbook.DailyAccrual
	now          func() time.Time
}

var _ loanbook.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		loans:        make(map[loanbook.LoanID]loanbook.Loan),
		transactions: make(map[loanbook.LoanID][]loanbook.Transaction),
		idempotency:  make(map[string]bool),
		accruals:     make(map[loanbook.LoanID][]loanbook.DailyAccrual),
		now:          time.Now,
	}
}

func (m *Memory) CreateLoan(_ context.Context, loan loanbook.Loan) error {
	if err := loan.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loans[loan.ID]; ok {
		return loanbook.ErrDuplicateLoan
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = m.now().UTC()
	}
	m.loans[loan.ID] = loan
	m.order = append(m.order, loan.ID)
	return nil
}

func (m *Memory) GetLoan(_ context.Context, id loanbook.LoanID) (loanbook.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loan, ok := m.loans[id]
	if !ok {
		return loanbook.Loan{}, loanbook.ErrLoanNotFound
	}
	return loan, nil
}

func (m *Memory) ListLoans(_ context.Context) ([]loanbook.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loanbook.Loan, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.loans[id])
	}
	return result, nil
}

// AppendTransaction keeps each loan's history sorted by date; same-day
// transactions stay in insertion order.
func (m *Memory) AppendTransaction(_ context.Context, tx loanbook.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.loans[tx.LoanID]; !ok {
		return loanbook.ErrLoanNotFound
	}
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return loanbook.ErrDuplicateIdempotencyKey
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = m.now().UTC()
	}

	txs := m.transactions[tx.LoanID]
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].Date.After(tx.Date)
	})
	txs = append(txs, loanbook.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.LoanID] = txs

	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Transactions(_ context.Context, id loanbook.LoanID) ([]loanbook.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.loans[id]; !ok {
		return nil, loanbook.ErrLoanNotFound
	}
	result := make([]loanbook.Transaction, len(m.transactions[id]))
	copy(result, m.transactions[id])
	return result, nil
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

func (m *Memory) RecordAccrualRun(_ context.Context, run loanbook.AccrualRun, accruals []loanbook.DailyAccrual) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.Status == loanbook.RunCompleted && m.hasCompletedLocked(run.AccrualDate) {
		return loanbook.ErrAccrualRunExists
	}
	m.runs = append(m.runs, run)
	for _, a := range accruals {
		m.accruals[a.LoanID] = append(m.accruals[a.LoanID], a)
	}
	return nil
}

func (m *Memory) HasAccrualRun(_ context.Context, date civil.Date) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasCompletedLocked(date), nil
}

func (m *Memory) hasCompletedLocked(date civil.Date) bool {
	for _, r := range m.runs {
		if r.AccrualDate == date && r.Status == loanbook.RunCompleted {
			return true
		}
	}
	return false
}

func (m *Memory) AccrualRuns(_ context.Context, limit int) ([]loanbook.AccrualRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loanbook.AccrualRun, len(m.runs))
	copy(result, m.runs)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AccrualDate.After(result[j].AccrualDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) DailyAccruals(_ context.Context, id loanbook.LoanID) ([]loanbook.DailyAccrual, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loanbook.DailyAccrual, len(m.accruals[id]))
	copy(result, m.accruals[id])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AccrualDate.Before(result[j].AccrualDate)
	})
	return result, nil
}

// Reset clears all data (for demo reloads).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loans = make(map[loanbook.LoanID]loanbook.Loan)
	m.order = nil
	m.transactions = make(map[loanbook.LoanID][]loanbook.Transaction)
	m.idempotency = make(map[string]bool)
	m.runs = nil
	m.accruals = make(map[loanbook.LoanID][]loanbook.DailyAccrual)
	return nil
}
