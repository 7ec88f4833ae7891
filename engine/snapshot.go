/*
snapshot.go - Installment status as of a date

PURPOSE:
  Overlays actual payments on an amortization schedule. Payments made on
  or before the as-of date are poured into installments in order; each
  installment is then paid, partial, overdue or pending.

STATUS RULES:
  paid     fully covered
  overdue  due on or before as-of and not fully covered
  partial  not yet due, partly covered
  pending  not yet due, nothing covered

  Inside an installment, money covers interest before principal, so the
  outstanding balance only falls once an installment's interest is met.
*/
package engine

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ScheduleSnapshot is a schedule with payments applied.
type ScheduleSnapshot struct {
	AsOf               civil.Date
	Installments       []Installment
	TotalPaid          decimal.Decimal
	OutstandingBalance decimal.Decimal
	OverdueCount       int
	OverdueAmount      decimal.Decimal
	NextDue            *Installment
}

// SnapshotAsOf applies payments dated on or before asOf to the schedule.
// The input schedule is not modified.
func SnapshotAsOf(schedule []Installment, payments []Transaction, asOf civil.Date) ScheduleSnapshot {
	pool := decimal.Zero
	for _, p := range payments {
		if p.Type == TxPayment && !p.Date.After(asOf) {
			pool = pool.Add(p.Amount)
		}
	}

	snap := ScheduleSnapshot{
		AsOf:               asOf,
		Installments:       make([]Installment, len(schedule)),
		TotalPaid:          pool,
		OutstandingBalance: decimal.Zero,
		OverdueAmount:      decimal.Zero,
	}
	covered := decimal.Zero
	principal := decimal.Zero

	for i, inst := range schedule {
		paid := decimal.Min(pool, inst.EMI)
		pool = pool.Sub(paid)
		inst.PaidAmount = paid

		principalPaid := decimal.Max(decimal.Zero, paid.Sub(inst.Interest))
		covered = covered.Add(decimal.Min(principalPaid, inst.Principal))
		principal = principal.Add(inst.Principal)

		switch {
		case paid.GreaterThanOrEqual(inst.EMI):
			inst.Status = StatusPaid
		case !inst.DueDate.After(asOf):
			inst.Status = StatusOverdue
			snap.OverdueCount++
			snap.OverdueAmount = snap.OverdueAmount.Add(inst.EMI.Sub(paid))
		case paid.IsPositive():
			inst.Status = StatusPartial
		default:
			inst.Status = StatusPending
		}
		snap.Installments[i] = inst
	}

	for i := range snap.Installments {
		if snap.Installments[i].Status != StatusPaid {
			snap.NextDue = &snap.Installments[i]
			break
		}
	}
	snap.OutstandingBalance = principal.Sub(covered)
	return snap
}
