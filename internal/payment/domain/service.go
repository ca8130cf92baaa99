package domain

import (
	"context"
	"errors"
	"time"

	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/shopspring/decimal"
)

type ApplyRequest struct {
	MemberID string
	Amount   decimal.Decimal
	Date     time.Time
	Method   string
	Notes    string
}

// ApplyResult carries the updated legacy fields plus the appended
// audit record.
type ApplyResult struct {
	Member         memberdomain.Member
	Record         PaymentRecord
	Classification Classification
	IsFull         bool
}

type ListByMemberRequest struct {
	MemberID string
}

// Service is the legacy ledger: it mutates the denormalized
// payment_status/amount_owed/next_payment_date fields on the member
// and appends to the payment_records audit trail.
type Service interface {
	Apply(context.Context, ApplyRequest) (ApplyResult, error)
	ListByMember(context.Context, ListByMemberRequest) ([]PaymentRecord, error)
	// SendInvoice emails a payment confirmation. Best effort; the
	// returned flag feeds invoice_sent in the response and a failure
	// never rolls back the ledger.
	SendInvoice(ctx context.Context, member memberdomain.Member, record PaymentRecord) bool
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidDate   = errors.New("invalid_payment_date")
)
