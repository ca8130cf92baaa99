package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentStatus is the denormalized payment state carried on the
// member record itself (the legacy representation).
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusDue     PaymentStatus = "due"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusDue, PaymentStatusOverdue:
		return true
	default:
		return false
	}
}

// MemberStatus marks whether the membership is live.
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "Active"
	MemberStatusInactive MemberStatus = "Inactive"
)

func (s MemberStatus) Valid() bool {
	return s == MemberStatusActive || s == MemberStatusInactive
}

// Member is a gym member. NextPaymentDate, PaymentStatus and AmountOwed
// are derived fields maintained by payment recording; they are never
// accepted from callers directly.
type Member struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name                 string            `gorm:"not null" json:"name"`
	Email                string            `gorm:"not null;uniqueIndex" json:"email"`
	Phone                string            `gorm:"" json:"phone,omitempty"`
	MonthlyFee           decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"monthly_fee"`
	StartDate            time.Time         `gorm:"not null" json:"start_date"`
	NextPaymentDate      time.Time         `gorm:"not null;index" json:"next_payment_date"`
	PaymentStatus        PaymentStatus     `gorm:"type:text;not null;default:'due'" json:"payment_status"`
	AmountOwed           decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"amount_owed"`
	BillingIntervalDays  int               `gorm:"not null;default:30" json:"billing_interval_days"`
	AutoRemindersEnabled bool              `gorm:"not null;default:true" json:"auto_reminders_enabled"`
	LastReminderSentAt   *time.Time        `gorm:"" json:"last_reminder_sent_at,omitempty"`
	Status               MemberStatus      `gorm:"type:text;not null;default:'Active'" json:"status"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Member) TableName() string { return "members" }
