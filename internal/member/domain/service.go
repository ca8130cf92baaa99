package domain

import (
	"context"
	"errors"
	"time"

	"github.com/gymdesk/gymdesk/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateMemberRequest struct {
	Name                 string
	Email                string
	Phone                string
	MonthlyFee           decimal.Decimal
	StartDate            time.Time
	BillingIntervalDays  int
	AutoRemindersEnabled *bool
}

type UpdateMemberRequest struct {
	ID                   string
	Name                 *string
	Email                *string
	Phone                *string
	MonthlyFee           *decimal.Decimal
	StartDate            *time.Time
	AutoRemindersEnabled *bool
	Status               *MemberStatus
}

type GetMemberRequest struct {
	ID string
}

type DeleteMemberRequest struct {
	ID string
}

type ListMemberRequest struct {
	PageToken     string
	PageSize      int32
	Name          string
	Email         string
	Status        MemberStatus
	PaymentStatus PaymentStatus
}

type ListMemberResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

type Service interface {
	Create(context.Context, CreateMemberRequest) (Member, error)
	GetByID(context.Context, GetMemberRequest) (Member, error)
	List(context.Context, ListMemberRequest) (ListMemberResponse, error)
	Update(context.Context, UpdateMemberRequest) (Member, error)
	// Delete removes the member and cascades to its payment records,
	// billing cycles and cycle payments.
	Delete(context.Context, DeleteMemberRequest) error
	// MarkOverdue flips payment_status to overdue for active members
	// whose due date has passed with a balance still owed. Called by
	// the reminder sweep.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

var (
	ErrNotFound          = errors.New("member_not_found")
	ErrInvalidID         = errors.New("invalid_member_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrEmailTaken        = errors.New("email_taken")
	ErrInvalidMonthlyFee = errors.New("invalid_monthly_fee")
	ErrInvalidStartDate  = errors.New("invalid_start_date")
	ErrInvalidStatus     = errors.New("invalid_status")
)
