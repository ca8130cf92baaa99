package service

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/billing/domain"
	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	"github.com/gymdesk/gymdesk/internal/clock"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	paymentdomain "github.com/gymdesk/gymdesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	LedgerSvc paymentdomain.Service
	CycleSvc  billingcycledomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	ledgerSvc paymentdomain.Service
	cycleSvc  billingcycledomain.Service

	locks memberLocks
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		ledgerSvc: p.LedgerSvc,
		cycleSvc:  p.CycleSvc,
	}
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.PaymentResult, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.PaymentResult{}, memberdomain.ErrInvalidID
	}
	if req.Amount.Sign() <= 0 {
		return domain.PaymentResult{}, paymentdomain.ErrInvalidAmount
	}
	if req.Date.IsZero() {
		return domain.PaymentResult{}, paymentdomain.ErrInvalidDate
	}

	applied, result, err := s.recordLocked(ctx, memberID, req)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	// The invoice email runs outside the per-member lock and never
	// affects the recorded payment.
	result.InvoiceSent = s.ledgerSvc.SendInvoice(ctx, applied.Member, applied.Record)

	if applied.IsFull {
		paymentsRecorded.WithLabelValues("full").Inc()
	} else {
		paymentsRecorded.WithLabelValues("partial").Inc()
	}

	return result, nil
}

// recordLocked performs both ledger writes while holding the member's
// lock. Payment recording is a read-modify-write on the member's
// balance and due date, so concurrent requests for one member are
// serialized here; different members proceed in parallel.
func (s *Service) recordLocked(ctx context.Context, memberID snowflake.ID, req domain.RecordPaymentRequest) (paymentdomain.ApplyResult, domain.PaymentResult, error) {
	unlock := s.locks.lock(memberID)
	defer unlock()

	applied, err := s.ledgerSvc.Apply(ctx, paymentdomain.ApplyRequest{
		MemberID: req.MemberID,
		Amount:   req.Amount,
		Date:     req.Date,
		Method:   req.Method,
		Notes:    req.Notes,
	})
	if err != nil {
		return paymentdomain.ApplyResult{}, domain.PaymentResult{}, err
	}

	result := domain.PaymentResult{
		MemberID:           applied.Member.ID.String(),
		PaymentStatus:      applied.Member.PaymentStatus,
		NewNextPaymentDate: applied.Member.NextPaymentDate,
		RemainingBalance:   applied.Member.AmountOwed,
	}

	cycleResp, err := s.applyToCycle(ctx, memberID, req)
	if err != nil {
		// Legacy write is authoritative for revenue; park the cycle
		// side for the reconciliation sweep instead of failing the
		// request.
		s.recordDivergence(ctx, memberID, req, err)
		return applied, result, nil
	}

	result.BillingCycleUpdated = true
	result.CycleStatus = cycleResp.Cycle.Status
	result.CycleTotalPaid = cycleResp.TotalPaid
	return applied, result, nil
}

func (s *Service) applyToCycle(ctx context.Context, memberID snowflake.ID, req domain.RecordPaymentRequest) (billingcycledomain.RecordCyclePaymentResponse, error) {
	cycle, err := s.cycleSvc.CurrentCycle(ctx, memberID.String())
	if err != nil {
		return billingcycledomain.RecordCyclePaymentResponse{}, err
	}

	return s.cycleSvc.RecordPayment(ctx, billingcycledomain.RecordCyclePaymentRequest{
		CycleID: cycle.ID.String(),
		Amount:  req.Amount,
		Date:    req.Date,
		Method:  req.Method,
		Notes:   req.Notes,
	})
}

func (s *Service) recordDivergence(ctx context.Context, memberID snowflake.ID, req domain.RecordPaymentRequest, cause error) {
	cycleWriteFailures.Inc()
	s.log.Warn("cycle ledger write failed after legacy write",
		zap.String("member_id", memberID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.Time("payment_date", req.Date),
		zap.Error(cause),
	)

	task := domain.ReconciliationTask{
		ID:          s.genID.Generate(),
		MemberID:    memberID,
		Amount:      req.Amount,
		PaymentDate: req.Date,
		Method:      req.Method,
		Notes:       req.Notes,
		Reason:      cause.Error(),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		// Nothing left to park it in; the warn log above is the
		// only trace.
		s.log.Error("failed to persist reconciliation task",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) ReconcilePending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}

	var tasks []domain.ReconciliationTask
	err := s.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, task := range tasks {
		if err := s.reconcileTask(ctx, task); err != nil {
			s.log.Warn("reconciliation retry failed",
				zap.String("task_id", task.ID.String()),
				zap.String("member_id", task.MemberID.String()),
				zap.Error(err),
			)
			continue
		}
		resolved++
		reconciliationsResolved.Inc()
	}
	return resolved, nil
}

func (s *Service) reconcileTask(ctx context.Context, task domain.ReconciliationTask) error {
	unlock := s.locks.lock(task.MemberID)
	defer unlock()

	_, err := s.applyToCycle(ctx, task.MemberID, domain.RecordPaymentRequest{
		MemberID: task.MemberID.String(),
		Amount:   task.Amount,
		Date:     task.PaymentDate,
		Method:   task.Method,
		Notes:    task.Notes,
	})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).
		Model(&domain.ReconciliationTask{}).
		Where("id = ?", task.ID).
		Update("resolved_at", now).Error
}

// memberLocks serializes payment recording per member.
type memberLocks struct {
	mu    sync.Mutex
	locks map[snowflake.ID]*sync.Mutex
}

func (l *memberLocks) lock(id snowflake.ID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[snowflake.ID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
