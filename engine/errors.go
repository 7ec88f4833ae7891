/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All validation failures the engine can produce, in one place. The engine
  is pure: there are no transient failures, so nothing here is retryable.
  Either a complete, internally consistent result is returned or one of
  these errors is.

ERROR CATEGORIES:
  1. Input errors - bad amounts, days, tenures, unknown loan types
  2. Date errors - ranges that run backwards or start before disbursement
  3. Replay errors - unordered transactions, balance driven negative
  4. Simulation errors - payment larger than the outstanding balance

USAGE:
  Callers test the category with errors.Is and read details with errors.As:

    if errors.Is(err, engine.ErrPaymentExceedsBalance) { ... }

    var calcErr *engine.CalcError
    if errors.As(err, &calcErr) {
        log.Println(calcErr.Kind, calcErr.Message)
    }

SEE ALSO:
  - api/handlers.go: maps Kind to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateRange is returned when to < from, or from precedes disbursement.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidTenure is returned when tenure_months <= 0.
	ErrInvalidTenure = errors.New("invalid tenure")

	// ErrInvalidInput is returned for negative/zero amounts or days.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownLoanType is returned when no rate tiers are configured for a loan type.
	ErrUnknownLoanType = errors.New("unknown loan type")

	// ErrPaymentExceedsBalance is returned when a simulated payment is larger
	// than the outstanding principal on the payment date.
	ErrPaymentExceedsBalance = errors.New("payment exceeds outstanding balance")

	// ErrUnorderedTransaction is returned when a transaction history goes back in time.
	ErrUnorderedTransaction = errors.New("transactions not in chronological order")

	// ErrNegativeBalance is returned when a payment would push the ledger below its floor.
	ErrNegativeBalance = errors.New("balance would become negative")
)

// ErrorKind is the machine-readable category carried by CalcError.
type ErrorKind string

const (
	KindInvalidDateRange      ErrorKind = "invalid_date_range"
	KindInvalidTenure         ErrorKind = "invalid_tenure"
	KindInvalidInput          ErrorKind = "invalid_input"
	KindUnknownLoanType       ErrorKind = "unknown_loan_type"
	KindPaymentExceedsBalance ErrorKind = "payment_exceeds_balance"
	KindUnorderedTransaction  ErrorKind = "unordered_transaction"
	KindNegativeBalance       ErrorKind = "negative_balance"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidDateRange:      ErrInvalidDateRange,
	KindInvalidTenure:         ErrInvalidTenure,
	KindInvalidInput:          ErrInvalidInput,
	KindUnknownLoanType:       ErrUnknownLoanType,
	KindPaymentExceedsBalance: ErrPaymentExceedsBalance,
	KindUnorderedTransaction:  ErrUnorderedTransaction,
	KindNegativeBalance:       ErrNegativeBalance,
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CalcError is the structured error every engine operation returns.
type CalcError struct {
	Kind    ErrorKind
	Message string
}

func (e *CalcError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the sentinel for the error's kind.
func (e *CalcError) Unwrap() error {
	return kindSentinels[e.Kind]
}

func newError(kind ErrorKind, format string, args ...any) *CalcError {
	return &CalcError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PaymentExceedsBalanceError provides details about an oversized payment.
type PaymentExceedsBalanceError struct {
	Requested   string
	Outstanding string
	On          string
}

func (e *PaymentExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment %s exceeds outstanding balance %s on %s",
		e.Requested, e.Outstanding, e.On)
}

func (e *PaymentExceedsBalanceError) Unwrap() error {
	return ErrPaymentExceedsBalance
}

// UnorderedTransactionError identifies the first transaction out of order.
type UnorderedTransactionError struct {
	Index    int
	Date     string
	Previous string
}

func (e *UnorderedTransactionError) Error() string {
	return fmt.Sprintf("transaction %d dated %s precedes previous transaction dated %s",
		e.Index, e.Date, e.Previous)
}

func (e *UnorderedTransactionError) Unwrap() error {
	return ErrUnorderedTransaction
}

// NegativeBalanceError identifies the payment that breached the floor.
type NegativeBalanceError struct {
	Date    string
	Balance string
	Payment string
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("payment %s on %s would take balance %s below zero",
		e.Payment, e.Date, e.Balance)
}

func (e *NegativeBalanceError) Unwrap() error {
	return ErrNegativeBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the machine-readable kind of any engine error, or "" when
// err did not originate in the engine.
func KindOf(err error) ErrorKind {
	var calcErr *CalcError
	if errors.As(err, &calcErr) {
		return calcErr.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// IsClientError returns true if the error is due to invalid caller input.
// Every engine error is; anything else is not.
func IsClientError(err error) bool {
	return KindOf(err) != ""
}

// IsUnprocessable returns true for well-formed requests the loan state cannot satisfy.
func IsUnprocessable(err error) bool {
	return errors.Is(err, ErrPaymentExceedsBalance) ||
		errors.Is(err, ErrNegativeBalance)
}
