package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification decides whether a payment consumes a due-date advance.
type Classification string

const (
	// SameDaySettlement covers the first billing period without
	// advancing the due date. It fires only when the member pays on
	// (or before) the day they joined.
	SameDaySettlement Classification = "same_day_settlement"
	// StandardOccurrence advances the due date once the balance is
	// settled in full.
	StandardOccurrence Classification = "standard_occurrence"
)

// Classify applies the documented rule: a payment is a same-day
// settlement iff it is no later than the current due date AND no later
// than the member's start date. A payment made before the due date but
// after the join day is still a standard occurrence. Intentional; do
// not broaden without a product decision.
func Classify(startDate, currentDueDate, paymentDate time.Time) Classification {
	if !paymentDate.After(currentDueDate) && !paymentDate.After(startDate) {
		return SameDaySettlement
	}
	return StandardOccurrence
}

// BalanceResolution is the outcome of applying a payment amount to the
// outstanding balance.
type BalanceResolution struct {
	Remaining decimal.Decimal
	IsFull    bool
}

// ResolveBalance subtracts the paid amount from the balance owed.
// Overpayment clamps to zero; there is no credit concept.
func ResolveBalance(owedBefore, amountPaid decimal.Decimal) BalanceResolution {
	remaining := owedBefore.Sub(amountPaid)
	if remaining.Sign() <= 0 {
		return BalanceResolution{Remaining: decimal.Zero, IsFull: true}
	}
	return BalanceResolution{Remaining: remaining, IsFull: false}
}
