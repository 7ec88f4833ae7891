/*
ledger.go - Running-balance loan statement

PURPOSE:
  Replays a loan's transaction history into the statement a bank prints:
  one row per disbursement, payment and interest posting, each carrying
  the running balance. Nothing is stored. The ledger is recomputed from
  the terms and the history every time it is asked for, so there is no
  balance field that can drift from the transactions that produced it.

REPLAY RULES:
  1. Transactions are applied in the order given; a date that goes
     backwards is an error, never silently re-sorted.
  2. Before each transaction, interest for [previous date, this date) is
     posted on the outstanding principal. Interest is simple: it is never
     charged on unpaid interest.
  3. Payments pay accrued interest first, then principal.
  4. A payment larger than the running balance is rejected unless
     overpayment is allowed.

INVARIANT:
  running_balance[i] = running_balance[i-1] - credit[i] + debit[i] + interest[i]

  VerifyLedger recomputes every row to prove it.

SEE ALSO:
  - accrual.go: interest between transactions
  - projection.go: ledger balances at future dates
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/pacs/loan-engine/calendar"
)

// =============================================================================
// TRANSACTIONS - input to the replay
// =============================================================================

// TransactionType is the kind of money movement on a loan.
type TransactionType string

const (
	TxDisbursement TransactionType = "disbursement"
	TxPayment      TransactionType = "payment"
)

// Transaction is one historical money movement.
type Transaction struct {
	Date      civil.Date
	Type      TransactionType
	Amount    decimal.Decimal
	Reference string
}

// =============================================================================
// LEDGER - output of the replay
// =============================================================================

// EntryKind classifies a ledger row.
type EntryKind string

const (
	EntryDisbursement EntryKind = "disbursement"
	EntryInterest     EntryKind = "interest"
	EntryPayment      EntryKind = "payment"
)

// LedgerEntry is one row of the statement.
type LedgerEntry struct {
	Date           civil.Date
	Description    string
	Kind           EntryKind
	Credit         decimal.Decimal
	Debit          decimal.Decimal
	Interest       decimal.Decimal
	RunningBalance decimal.Decimal
	Reference      string
}

// LedgerSummary totals a statement.
type LedgerSummary struct {
	AsOf                 civil.Date
	CurrentBalance       decimal.Decimal
	TotalDebits          decimal.Decimal
	TotalCredits         decimal.Decimal
	TotalInterest        decimal.Decimal
	PrincipalOutstanding decimal.Decimal
	InterestOutstanding  decimal.Decimal
}

// Ledger is a replayed statement.
type Ledger struct {
	Terms   LoanTerms
	Entries []LedgerEntry
	Summary LedgerSummary
}

// LedgerOptions tune the replay. With AsOf set, transactions dated after it
// are ignored and interest is posted up to (not including) AsOf.
type LedgerOptions struct {
	AsOf             *civil.Date
	AllowOverpayment bool
}

// =============================================================================
// BUILD
// =============================================================================

// Build replays transactions for a loan. When the history has no
// disbursement, one for the full principal is posted on the disbursement
// date.
func (rs *RateSchedule) Build(terms LoanTerms, txs []Transaction, opts LedgerOptions) (Ledger, error) {
	if err := terms.validate(); err != nil {
		return Ledger{}, err
	}
	if _, err := rs.schemes.Lookup(terms.LoanType); err != nil {
		return Ledger{}, err
	}
	if err := validateTransactions(terms, txs); err != nil {
		return Ledger{}, err
	}

	history := withOpeningDisbursement(terms, txs)
	b := ledgerBuilder{
		rs:       rs,
		terms:    terms,
		cursor:   terms.DisbursementDate,
		balance:  decimal.Zero,
		owedPrin: decimal.Zero,
		owedInt:  decimal.Zero,
		entries:  make([]LedgerEntry, 0, len(history)*2+1),
	}

	for _, tx := range history {
		if opts.AsOf != nil && tx.Date.After(*opts.AsOf) {
			break
		}
		if err := b.postInterest(tx.Date); err != nil {
			return Ledger{}, err
		}
		if err := b.apply(tx, opts.AllowOverpayment); err != nil {
			return Ledger{}, err
		}
	}

	asOf := b.cursor
	if opts.AsOf != nil {
		if err := b.postInterest(*opts.AsOf); err != nil {
			return Ledger{}, err
		}
		asOf = *opts.AsOf
	}

	return Ledger{
		Terms:   terms,
		Entries: b.entries,
		Summary: summarizeLedger(b.entries, asOf, b.owedPrin, b.owedInt),
	}, nil
}

func validateTransactions(terms LoanTerms, txs []Transaction) error {
	for i, tx := range txs {
		if tx.Type != TxDisbursement && tx.Type != TxPayment {
			return newError(KindInvalidInput, "transaction %d has unknown type %q", i, tx.Type)
		}
		if !tx.Amount.IsPositive() {
			return newError(KindInvalidInput, "transaction %d amount must be positive, got %s", i, tx.Amount)
		}
		if tx.Date.Before(terms.DisbursementDate) {
			return newError(KindInvalidDateRange,
				"transaction %d dated %s precedes disbursement on %s", i, tx.Date, terms.DisbursementDate)
		}
		if i > 0 && tx.Date.Before(txs[i-1].Date) {
			return &UnorderedTransactionError{Index: i, Date: tx.Date.String(), Previous: txs[i-1].Date.String()}
		}
	}
	return nil
}

func withOpeningDisbursement(terms LoanTerms, txs []Transaction) []Transaction {
	for _, tx := range txs {
		if tx.Type == TxDisbursement {
			return txs
		}
	}
	opening := Transaction{
		Date:      terms.DisbursementDate,
		Type:      TxDisbursement,
		Amount:    terms.Principal,
		Reference: "opening",
	}
	return append([]Transaction{opening}, txs...)
}

type ledgerBuilder struct {
	rs       *RateSchedule
	terms    LoanTerms
	cursor   civil.Date
	balance  decimal.Decimal
	owedPrin decimal.Decimal
	owedInt  decimal.Decimal
	entries  []LedgerEntry
}

func (b *ledgerBuilder) postInterest(until civil.Date) error {
	if !until.After(b.cursor) {
		return nil
	}
	from := b.cursor
	b.cursor = until
	if !b.owedPrin.IsPositive() {
		return nil
	}
	res, err := b.rs.Accrue(b.owedPrin, b.terms.LoanType, b.terms.DisbursementDate, from, until)
	if err != nil {
		return err
	}
	if res.TotalInterest.IsZero() {
		return nil
	}
	b.owedInt = b.owedInt.Add(res.TotalInterest)
	b.balance = b.balance.Add(res.TotalInterest)
	b.entries = append(b.entries, LedgerEntry{
		Date:           until,
		Description:    interestDescription(res),
		Kind:           EntryInterest,
		Credit:         decimal.Zero,
		Debit:          decimal.Zero,
		Interest:       res.TotalInterest,
		RunningBalance: b.balance,
	})
	return nil
}

func (b *ledgerBuilder) apply(tx Transaction, allowOverpayment bool) error {
	entry := LedgerEntry{
		Date:      tx.Date,
		Credit:    decimal.Zero,
		Debit:     decimal.Zero,
		Interest:  decimal.Zero,
		Reference: tx.Reference,
	}
	switch tx.Type {
	case TxDisbursement:
		entry.Kind = EntryDisbursement
		entry.Description = "Loan disbursed"
		entry.Debit = tx.Amount
		b.owedPrin = b.owedPrin.Add(tx.Amount)
		b.balance = b.balance.Add(tx.Amount)

	case TxPayment:
		if tx.Amount.GreaterThan(b.balance) && !allowOverpayment {
			return &NegativeBalanceError{
				Date:    tx.Date.String(),
				Balance: b.balance.StringFixed(2),
				Payment: tx.Amount.StringFixed(2),
			}
		}
		toInterest := decimal.Min(tx.Amount, b.owedInt)
		b.owedInt = b.owedInt.Sub(toInterest)
		b.owedPrin = b.owedPrin.Sub(tx.Amount.Sub(toInterest))
		entry.Kind = EntryPayment
		entry.Description = "Payment received"
		entry.Credit = tx.Amount
		b.balance = b.balance.Sub(tx.Amount)
	}
	entry.RunningBalance = b.balance
	b.entries = append(b.entries, entry)
	return nil
}

func interestDescription(res AccrualResult) string {
	if res.CrossesRateBoundary {
		return "Interest " + calendar.Format(res.From) + " to " + calendar.Format(res.To) + " (rate revised)"
	}
	return "Interest @ " + res.EffectiveRate().StringFixed(2) + "% " +
		calendar.Format(res.From) + " to " + calendar.Format(res.To)
}

func summarizeLedger(entries []LedgerEntry, asOf civil.Date, owedPrin, owedInt decimal.Decimal) LedgerSummary {
	s := LedgerSummary{
		AsOf:                 asOf,
		CurrentBalance:       decimal.Zero,
		TotalDebits:          decimal.Zero,
		TotalCredits:         decimal.Zero,
		TotalInterest:        decimal.Zero,
		PrincipalOutstanding: owedPrin,
		InterestOutstanding:  owedInt,
	}
	for _, e := range entries {
		s.TotalDebits = s.TotalDebits.Add(e.Debit)
		s.TotalCredits = s.TotalCredits.Add(e.Credit)
		s.TotalInterest = s.TotalInterest.Add(e.Interest)
	}
	if len(entries) > 0 {
		s.CurrentBalance = entries[len(entries)-1].RunningBalance
	}
	return s
}

// VerifyLedger recomputes every running balance from the row amounts and
// reports the first row that disagrees.
func VerifyLedger(entries []LedgerEntry) error {
	balance := decimal.Zero
	for i, e := range entries {
		if i > 0 && e.Date.Before(entries[i-1].Date) {
			return &UnorderedTransactionError{Index: i, Date: e.Date.String(), Previous: entries[i-1].Date.String()}
		}
		balance = balance.Sub(e.Credit).Add(e.Debit).Add(e.Interest)
		if !balance.Equal(e.RunningBalance) {
			return newError(KindInvalidInput, "row %d running balance %s, replay gives %s",
				i, e.RunningBalance.StringFixed(2), balance.StringFixed(2))
		}
	}
	return nil
}
