package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ReconciliationTask records a payment whose cycle-ledger write failed
// after the legacy write succeeded. The legacy side is authoritative
// for revenue, so the payment stands; the reminder sweep retries the
// cycle side until ResolvedAt is set.
type ReconciliationTask struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID    snowflake.ID    `gorm:"not null;index" json:"member_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Method      string          `gorm:"type:text;not null;default:'cash'" json:"method"`
	Notes       string          `gorm:"" json:"notes,omitempty"`
	Reason      string          `gorm:"not null" json:"reason"`
	ResolvedAt  *time.Time      `gorm:"index" json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReconciliationTask) TableName() string { return "reconciliation_tasks" }
