package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/billing/schedule"
	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	"github.com/gymdesk/gymdesk/internal/clock"
	"github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/pkg/db"
	"github.com/gymdesk/gymdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	CycleSvc billingcycledomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	cycleSvc billingcycledomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("member.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cycleSvc: p.CycleSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMemberRequest) (domain.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Member{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Member{}, domain.ErrInvalidEmail
	}

	if req.MonthlyFee.Sign() <= 0 {
		return domain.Member{}, domain.ErrInvalidMonthlyFee
	}

	if req.StartDate.IsZero() {
		return domain.Member{}, domain.ErrInvalidStartDate
	}

	intervalDays := req.BillingIntervalDays
	if intervalDays <= 0 {
		intervalDays = 30
	}

	autoReminders := true
	if req.AutoRemindersEnabled != nil {
		autoReminders = *req.AutoRemindersEnabled
	}

	now := s.clock.Now()
	member := domain.Member{
		ID:                   s.genID.Generate(),
		Name:                 name,
		Email:                email,
		Phone:                strings.TrimSpace(req.Phone),
		MonthlyFee:           req.MonthlyFee,
		StartDate:            req.StartDate,
		NextPaymentDate:      schedule.NextDueDate(req.StartDate),
		PaymentStatus:        domain.PaymentStatusDue,
		AmountOwed:           req.MonthlyFee,
		BillingIntervalDays:  intervalDays,
		AutoRemindersEnabled: autoReminders,
		Status:               domain.MemberStatusActive,
		Metadata:             datatypes.JSONMap{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Insert(ctx, s.db, &member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Member{}, domain.ErrEmailTaken
		}
		return domain.Member{}, err
	}

	if _, err := s.cycleSvc.CreateInitialCycle(ctx, member); err != nil {
		// Member row is committed; the idempotent migration pass
		// backfills the missing cycle.
		s.log.Error("initial billing cycle creation failed",
			zap.String("member_id", member.ID.String()),
			zap.Error(err),
		)
		return domain.Member{}, err
	}

	return member, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetMemberRequest) (domain.Member, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Member{}, err
	}

	member, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrNotFound
	}

	return *member, nil
}

func (s *Service) List(ctx context.Context, req domain.ListMemberRequest) (domain.ListMemberResponse, error) {
	filter := domain.ListMemberFilter{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListMemberResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(member *domain.Member) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        member.ID.String(),
			CreatedAt: member.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}

	resp := domain.ListMemberResponse{Members: members}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateMemberRequest) (domain.Member, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Member{}, err
	}

	member, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Member{}, domain.ErrInvalidName
		}
		member.Name = name
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			return domain.Member{}, domain.ErrInvalidEmail
		}
		member.Email = email
	}

	if req.Phone != nil {
		member.Phone = strings.TrimSpace(*req.Phone)
	}

	if req.MonthlyFee != nil {
		if req.MonthlyFee.Sign() <= 0 {
			return domain.Member{}, domain.ErrInvalidMonthlyFee
		}
		member.MonthlyFee = *req.MonthlyFee
	}

	if req.StartDate != nil {
		if req.StartDate.IsZero() {
			return domain.Member{}, domain.ErrInvalidStartDate
		}
		// next_payment_date is derived, never caller-supplied; a
		// start-date change is the only profile edit that moves it.
		member.StartDate = *req.StartDate
		member.NextPaymentDate = schedule.NextDueDate(*req.StartDate)
	}

	if req.AutoRemindersEnabled != nil {
		member.AutoRemindersEnabled = *req.AutoRemindersEnabled
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.Member{}, domain.ErrInvalidStatus
		}
		member.Status = *req.Status
	}

	member.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Member{}, domain.ErrEmailTaken
		}
		return domain.Member{}, err
	}

	return *member, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteMemberRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	member, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			`DELETE FROM cycle_payments WHERE member_id = ?`,
			`DELETE FROM billing_cycles WHERE member_id = ?`,
			`DELETE FROM payment_records WHERE member_id = ?`,
			`DELETE FROM reconciliation_tasks WHERE member_id = ?`,
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE members
		 SET payment_status = ?, updated_at = ?
		 WHERE status = ? AND payment_status = ? AND next_payment_date < ? AND amount_owed > 0`,
		domain.PaymentStatusOverdue,
		s.clock.Now(),
		domain.MemberStatusActive,
		domain.PaymentStatusDue,
		asOf,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
