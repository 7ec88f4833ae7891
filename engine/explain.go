package engine

import (
	"fmt"
	"strings"

	"github.com/pacs/loan-engine/calendar"
)

// Explainer turns a calculation result into text for a borrower. The HTTP
// layer attaches the text to responses; a model-backed implementation can
// replace the template one without touching the engine.
type Explainer interface {
	Explain(result any) string
}

// TemplateExplainer renders fixed English templates.
type TemplateExplainer struct{}

func (TemplateExplainer) Explain(result any) string {
	switch r := result.(type) {
	case AccrualResult:
		return explainAccrual(r)
	case PenaltyResult:
		return fmt.Sprintf("Rs. %s is %d days overdue (%s bracket). Overdue interest at %s%% is Rs. %s and the %s%% penalty is Rs. %s, so Rs. %s is due.",
			r.OverdueAmount.StringFixed(2), r.OverdueDays, r.TierLabel, r.OverdueRate.StringFixed(2),
			r.OverdueInterest.StringFixed(2), r.PenaltyRate.String(), r.PenaltyAmount.StringFixed(2), r.TotalDue.StringFixed(2))
	case ScheduleSummary:
		if r.EMIAfterYear.IsPositive() && !r.EMIAfterYear.Equal(r.FirstEMI) {
			return fmt.Sprintf("%d installments: Rs. %s a month for the first year, then Rs. %s. Total interest Rs. %s.",
				r.Installments, r.FirstEMI.StringFixed(2), r.EMIAfterYear.StringFixed(2), r.TotalInterest.StringFixed(2))
		}
		return fmt.Sprintf("%d installments of Rs. %s. Total interest Rs. %s.",
			r.Installments, r.FirstEMI.StringFixed(2), r.TotalInterest.StringFixed(2))
	case SimulationResult:
		return explainSimulation(r)
	case Comparison:
		return r.Recommendation
	default:
		return ""
	}
}

func explainAccrual(r AccrualResult) string {
	if len(r.Periods) == 0 {
		return "No interest accrues over zero days."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Interest on Rs. %s for %d days is Rs. %s.",
		r.Principal.StringFixed(2), r.TotalDays, r.TotalInterest.StringFixed(2))
	if r.CrossesRateBoundary {
		for _, p := range r.Periods {
			fmt.Fprintf(&b, " %s to %s: %d days at %s%% = Rs. %s.",
				calendar.Format(p.Start), calendar.Format(p.End), p.Days, p.Rate.StringFixed(2), p.Interest.StringFixed(2))
		}
	} else {
		fmt.Fprintf(&b, " Rate %s%% a year.", r.Periods[0].Rate.StringFixed(2))
	}
	return b.String()
}

func explainSimulation(r SimulationResult) string {
	if r.Closed() {
		return fmt.Sprintf("Paying Rs. %s on %s closes the loan and saves Rs. %s in interest.",
			r.Payment.Amount.StringFixed(2), calendar.Format(r.Payment.Date), r.TotalInterestSaved.StringFixed(2))
	}
	if r.ReduceEMI {
		return fmt.Sprintf("Paying Rs. %s on %s lowers the EMI from Rs. %s to Rs. %s and saves Rs. %s in interest.",
			r.Payment.Amount.StringFixed(2), calendar.Format(r.Payment.Date),
			r.CurrentEMI.StringFixed(2), r.NewEMI.StringFixed(2), r.TotalInterestSaved.StringFixed(2))
	}
	return fmt.Sprintf("Paying Rs. %s on %s shortens the loan by %d months and saves Rs. %s in interest.",
		r.Payment.Amount.StringFixed(2), calendar.Format(r.Payment.Date),
		r.TenureReducedMonths, r.TotalInterestSaved.StringFixed(2))
}
