package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/billing/schedule"
	"github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	"github.com/gymdesk/gymdesk/internal/clock"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingcycle.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) CreateInitialCycle(ctx context.Context, member memberdomain.Member) (domain.BillingCycle, error) {
	existing, err := s.findCurrentCycle(ctx, s.db, member.ID)
	if err != nil {
		return domain.BillingCycle{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	now := s.clock.Now()
	cycle := domain.BillingCycle{
		ID:        s.genID.Generate(),
		MemberID:  member.ID,
		StartDate: member.StartDate,
		DueDate:   member.NextPaymentDate,
		AmountDue: member.MonthlyFee,
		Status:    domain.CycleStatusUnpaid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&cycle).Error; err != nil {
		return domain.BillingCycle{}, err
	}
	return cycle, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordCyclePaymentRequest) (domain.RecordCyclePaymentResponse, error) {
	cycleID, err := parseID(req.CycleID, domain.ErrInvalidCycleID)
	if err != nil {
		return domain.RecordCyclePaymentResponse{}, err
	}
	if req.Amount.Sign() <= 0 {
		return domain.RecordCyclePaymentResponse{}, domain.ErrInvalidAmount
	}

	var resp domain.RecordCyclePaymentResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cycle domain.BillingCycle
		if err := tx.Where("id = ?", cycleID).Take(&cycle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrCycleNotFound
			}
			return err
		}
		if cycle.Status == domain.CycleStatusPaid {
			return domain.ErrCycleAlreadyPaid
		}

		now := s.clock.Now()
		payment := domain.CyclePayment{
			ID:             s.genID.Generate(),
			BillingCycleID: cycle.ID,
			MemberID:       cycle.MemberID,
			Amount:         req.Amount,
			Date:           req.Date,
			Method:         normalizeMethod(req.Method),
			Notes:          strings.TrimSpace(req.Notes),
			CreatedAt:      now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		total, err := s.sumCyclePayments(ctx, tx, cycle.ID)
		if err != nil {
			return err
		}

		if total.GreaterThanOrEqual(cycle.AmountDue) {
			cycle.Status = domain.CycleStatusPaid
		} else {
			cycle.Status = domain.CycleStatusPartiallyPaid
		}
		cycle.UpdatedAt = now
		if err := tx.Exec(
			`UPDATE billing_cycles SET status = ?, updated_at = ? WHERE id = ?`,
			cycle.Status, cycle.UpdatedAt, cycle.ID,
		).Error; err != nil {
			return err
		}

		resp = domain.RecordCyclePaymentResponse{
			Cycle:     cycle,
			TotalPaid: total,
		}

		if cycle.Status != domain.CycleStatusPaid {
			return nil
		}

		// Full settlement closes the cycle and opens the next one
		// from the old due date.
		var member memberdomain.Member
		if err := tx.Where("id = ?", cycle.MemberID).Take(&member).Error; err != nil {
			return err
		}
		next := domain.BillingCycle{
			ID:        s.genID.Generate(),
			MemberID:  cycle.MemberID,
			StartDate: cycle.DueDate,
			DueDate:   schedule.NextDueDate(cycle.DueDate),
			AmountDue: member.MonthlyFee,
			Status:    domain.CycleStatusUnpaid,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		resp.NextCycle = &next
		return nil
	})
	if err != nil {
		return domain.RecordCyclePaymentResponse{}, err
	}
	return resp, nil
}

func (s *Service) CurrentCycle(ctx context.Context, memberID string) (domain.BillingCycle, error) {
	id, err := parseID(memberID, memberdomain.ErrInvalidID)
	if err != nil {
		return domain.BillingCycle{}, err
	}

	cycle, err := s.findCurrentCycle(ctx, s.db, id)
	if err != nil {
		return domain.BillingCycle{}, err
	}
	if cycle == nil {
		return domain.BillingCycle{}, domain.ErrNoCurrentCycle
	}
	return *cycle, nil
}

func (s *Service) ListCycles(ctx context.Context, memberID string) ([]domain.CycleDetail, error) {
	id, err := parseID(memberID, memberdomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	var cycles []domain.BillingCycle
	if err := s.db.WithContext(ctx).
		Where("member_id = ?", id).
		Order("due_date asc, id asc").
		Find(&cycles).Error; err != nil {
		return nil, err
	}

	var payments []domain.CyclePayment
	if err := s.db.WithContext(ctx).
		Where("member_id = ?", id).
		Order("date asc, id asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	byCycle := make(map[snowflake.ID][]domain.CyclePayment, len(cycles))
	for _, p := range payments {
		byCycle[p.BillingCycleID] = append(byCycle[p.BillingCycleID], p)
	}

	details := make([]domain.CycleDetail, 0, len(cycles))
	for _, cycle := range cycles {
		detail := domain.CycleDetail{
			Cycle:     cycle,
			Payments:  byCycle[cycle.ID],
			TotalPaid: sumAmounts(byCycle[cycle.ID]),
		}
		if detail.Payments == nil {
			detail.Payments = []domain.CyclePayment{}
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Service) GetCycleDetail(ctx context.Context, cycleID string) (domain.CycleDetail, error) {
	id, err := parseID(cycleID, domain.ErrInvalidCycleID)
	if err != nil {
		return domain.CycleDetail{}, err
	}

	var cycle domain.BillingCycle
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CycleDetail{}, domain.ErrCycleNotFound
		}
		return domain.CycleDetail{}, err
	}

	var payments []domain.CyclePayment
	if err := s.db.WithContext(ctx).
		Where("billing_cycle_id = ?", id).
		Order("date asc, id asc").
		Find(&payments).Error; err != nil {
		return domain.CycleDetail{}, err
	}
	if payments == nil {
		payments = []domain.CyclePayment{}
	}

	return domain.CycleDetail{
		Cycle:     cycle,
		Payments:  payments,
		TotalPaid: sumAmounts(payments),
	}, nil
}

func (s *Service) MigrateExistingMembers(ctx context.Context) (domain.MigrationResult, error) {
	var members []memberdomain.Member
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM members m
		 WHERE NOT EXISTS (
			SELECT 1 FROM billing_cycles c
			WHERE c.member_id = m.id AND c.status != ?
		 )
		 ORDER BY m.id`,
		domain.CycleStatusPaid,
	).Scan(&members).Error
	if err != nil {
		return domain.MigrationResult{}, err
	}

	result := domain.MigrationResult{MembersScanned: len(members)}
	for _, member := range members {
		if _, err := s.CreateInitialCycle(ctx, member); err != nil {
			s.log.Error("cycle backfill failed",
				zap.String("member_id", member.ID.String()),
				zap.Error(err),
			)
			return result, err
		}
		result.CyclesCreated++
	}

	if result.CyclesCreated > 0 {
		s.log.Info("billing cycle migration complete",
			zap.Int("members_scanned", result.MembersScanned),
			zap.Int("cycles_created", result.CyclesCreated),
		)
	}
	return result, nil
}

func (s *Service) findCurrentCycle(ctx context.Context, tx *gorm.DB, memberID snowflake.ID) (*domain.BillingCycle, error) {
	var cycle domain.BillingCycle
	err := tx.WithContext(ctx).
		Where("member_id = ? AND status != ?", memberID, domain.CycleStatusPaid).
		Order("due_date asc, id asc").
		Take(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cycle, nil
}

func (s *Service) sumCyclePayments(ctx context.Context, tx *gorm.DB, cycleID snowflake.ID) (decimal.Decimal, error) {
	var payments []domain.CyclePayment
	if err := tx.WithContext(ctx).
		Where("billing_cycle_id = ?", cycleID).
		Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	return sumAmounts(payments), nil
}

func sumAmounts(payments []domain.CyclePayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

func normalizeMethod(method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return "cash"
	}
	return method
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
