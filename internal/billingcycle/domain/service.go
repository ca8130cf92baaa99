package domain

import (
	"context"
	"errors"
	"time"

	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/shopspring/decimal"
)

type RecordCyclePaymentRequest struct {
	CycleID string
	Amount  decimal.Decimal
	Date    time.Time
	Method  string
	Notes   string
}

// RecordCyclePaymentResponse returns the cycle after the transition
// rule was applied. NextCycle is set only when this payment settled the
// cycle in full and a new current cycle was opened.
type RecordCyclePaymentResponse struct {
	Cycle     BillingCycle    `json:"cycle"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	NextCycle *BillingCycle   `json:"next_cycle,omitempty"`
}

type CycleDetail struct {
	Cycle     BillingCycle    `json:"cycle"`
	Payments  []CyclePayment  `json:"payments"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

type MigrationResult struct {
	MembersScanned int `json:"members_scanned"`
	CyclesCreated  int `json:"cycles_created"`
}

type Service interface {
	// CreateInitialCycle seeds the first cycle from the member's
	// start date and computed next payment date. Called at member
	// creation and during migration.
	CreateInitialCycle(ctx context.Context, member memberdomain.Member) (BillingCycle, error)
	// RecordPayment appends a payment, recomputes the cumulative
	// total and applies Unpaid -> Partially Paid -> Paid. On full
	// settlement it closes the cycle and opens the next one.
	RecordPayment(ctx context.Context, req RecordCyclePaymentRequest) (RecordCyclePaymentResponse, error)
	// CurrentCycle returns the member's single non-Paid cycle.
	CurrentCycle(ctx context.Context, memberID string) (BillingCycle, error)
	ListCycles(ctx context.Context, memberID string) ([]CycleDetail, error)
	GetCycleDetail(ctx context.Context, cycleID string) (CycleDetail, error)
	// MigrateExistingMembers backfills a current cycle for every
	// member that predates the cycle ledger. Idempotent.
	MigrateExistingMembers(ctx context.Context) (MigrationResult, error)
}

var (
	ErrCycleNotFound  = errors.New("billing_cycle_not_found")
	ErrInvalidCycleID = errors.New("invalid_billing_cycle_id")
	ErrNoCurrentCycle   = errors.New("no_current_cycle")
	ErrInvalidAmount    = errors.New("invalid_cycle_amount")
	ErrCycleAlreadyPaid = errors.New("cycle_already_paid")
)
