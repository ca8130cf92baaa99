package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CycleStatus tracks settlement progress for one billing period.
type CycleStatus string

const (
	CycleStatusUnpaid        CycleStatus = "Unpaid"
	CycleStatusPartiallyPaid CycleStatus = "Partially Paid"
	CycleStatusPaid          CycleStatus = "Paid"
)

func (s CycleStatus) Valid() bool {
	switch s {
	case CycleStatusUnpaid, CycleStatusPartiallyPaid, CycleStatusPaid:
		return true
	default:
		return false
	}
}

// BillingCycle is one membership billing period. At most one cycle per
// member is not yet Paid; that one is the member's current cycle.
type BillingCycle struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID  snowflake.ID    `gorm:"not null;index" json:"member_id"`
	StartDate time.Time       `gorm:"not null" json:"start_date"`
	DueDate   time.Time       `gorm:"not null" json:"due_date"`
	AmountDue decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_due"`
	Status    CycleStatus     `gorm:"type:text;not null;default:'Unpaid'" json:"status"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BillingCycle) TableName() string { return "billing_cycles" }

// CyclePayment is one payment applied against a billing cycle.
// Append-only; the sum of a cycle's payments against its amount_due
// determines the cycle status.
type CyclePayment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	BillingCycleID snowflake.ID    `gorm:"not null;index" json:"billing_cycle_id"`
	MemberID       snowflake.ID    `gorm:"not null;index" json:"member_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Date           time.Time       `gorm:"not null" json:"date"`
	Method         string          `gorm:"type:text;not null;default:'cash'" json:"method"`
	Notes          string          `gorm:"" json:"notes,omitempty"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CyclePayment) TableName() string { return "cycle_payments" }
