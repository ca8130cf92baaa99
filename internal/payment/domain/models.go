package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentRecord is the append-only audit trail of the legacy ledger.
// One row is written per recorded payment and never mutated.
// PreviousDueDate/NewDueDate capture what the advance computation
// produced even when it was not applied (partial payments).
type PaymentRecord struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID        snowflake.ID    `gorm:"not null;index" json:"member_id"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	Method          string          `gorm:"type:text;not null;default:'cash'" json:"method"`
	Notes           string          `gorm:"" json:"notes,omitempty"`
	PreviousDueDate time.Time       `gorm:"not null" json:"previous_due_date"`
	NewDueDate      time.Time       `gorm:"not null" json:"new_due_date"`
	RecordedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"recorded_at"`
}

func (PaymentRecord) TableName() string { return "payment_records" }
