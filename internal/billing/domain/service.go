package domain

import (
	"context"
	"time"

	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/shopspring/decimal"
)

type RecordPaymentRequest struct {
	MemberID string
	Amount   decimal.Decimal
	Date     time.Time
	Method   string
	Notes    string
}

// PaymentResult combines the legacy fields with the cycle-ledger
// outcome of one recorded payment.
type PaymentResult struct {
	MemberID           string                     `json:"member_id"`
	PaymentStatus      memberdomain.PaymentStatus `json:"payment_status"`
	NewNextPaymentDate time.Time                  `json:"new_next_payment_date"`
	RemainingBalance   decimal.Decimal            `json:"remaining_balance"`
	InvoiceSent        bool                       `json:"invoice_sent"`

	BillingCycleUpdated bool                           `json:"billing_cycle_updated"`
	CycleStatus         billingcycledomain.CycleStatus `json:"cycle_status,omitempty"`
	CycleTotalPaid      decimal.Decimal                `json:"cycle_total_paid"`
}

// Service coordinates the dual write: the legacy member fields plus
// payment_records trail, and the normalized billing-cycle ledger.
type Service interface {
	RecordPayment(context.Context, RecordPaymentRequest) (PaymentResult, error)
	// ReconcilePending retries the cycle-side write for payments
	// whose dual write diverged. Returns how many tasks were
	// resolved.
	ReconcilePending(ctx context.Context, limit int) (int, error)
}
