package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/billing/domain"
	billingcycledomain "github.com/gymdesk/gymdesk/internal/billingcycle/domain"
	billingcycleservice "github.com/gymdesk/gymdesk/internal/billingcycle/service"
	"github.com/gymdesk/gymdesk/internal/clock"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	paymentdomain "github.com/gymdesk/gymdesk/internal/payment/domain"
	paymentservice "github.com/gymdesk/gymdesk/internal/payment/service"
	"github.com/gymdesk/gymdesk/internal/providers/email"
	"github.com/gymdesk/gymdesk/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type coordinatorFixture struct {
	svc      *Service
	cycleSvc billingcycledomain.Service
	db       *gorm.DB
	node     *snowflake.Node
}

func setupCoordinator(t *testing.T) coordinatorFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&memberdomain.Member{},
		&paymentdomain.PaymentRecord{},
		&billingcycledomain.BillingCycle{},
		&billingcycledomain.CyclePayment{},
		&domain.ReconciliationTask{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(date(2025, time.January, 15))

	ledgerSvc := paymentservice.New(paymentservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Email: &email.NoOpProvider{},
	})
	cycleSvc := billingcycleservice.New(billingcycleservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	svc := New(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		LedgerSvc: ledgerSvc,
		CycleSvc:  cycleSvc,
	}).(*Service)

	return coordinatorFixture{svc: svc, cycleSvc: cycleSvc, db: dbConn, node: node}
}

func (f coordinatorFixture) seedMember(t *testing.T, fee int64, withCycle bool) memberdomain.Member {
	t.Helper()

	member := memberdomain.Member{
		ID:                   f.node.Generate(),
		Name:                 "Morgan Vale",
		Email:                "morgan@example.test",
		MonthlyFee:           decimal.NewFromInt(fee),
		StartDate:            date(2025, time.January, 15),
		NextPaymentDate:      date(2025, time.February, 15),
		PaymentStatus:        memberdomain.PaymentStatusDue,
		AmountOwed:           decimal.NewFromInt(fee),
		BillingIntervalDays:  30,
		AutoRemindersEnabled: true,
		Status:               memberdomain.MemberStatusActive,
		Metadata:             datatypes.JSONMap{},
	}
	if err := f.db.Create(&member).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
	if withCycle {
		if _, err := f.cycleSvc.CreateInitialCycle(context.Background(), member); err != nil {
			t.Fatalf("create initial cycle: %v", err)
		}
	}
	return member
}

func TestRecordPaymentUpdatesBothRepresentations(t *testing.T) {
	f := setupCoordinator(t)
	member := f.seedMember(t, 300, true)

	res, err := f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(300),
		Date:     date(2025, time.February, 10),
		Method:   "card",
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	if res.PaymentStatus != memberdomain.PaymentStatusPaid {
		t.Fatalf("payment status: got %s", res.PaymentStatus)
	}
	if !res.NewNextPaymentDate.Equal(date(2025, time.March, 15)) {
		t.Fatalf("next payment date: got %s", res.NewNextPaymentDate)
	}
	if !res.RemainingBalance.IsZero() {
		t.Fatalf("remaining balance: got %s", res.RemainingBalance)
	}
	if !res.BillingCycleUpdated {
		t.Fatal("expected billing cycle updated")
	}
	if res.CycleStatus != billingcycledomain.CycleStatusPaid {
		t.Fatalf("cycle status: got %s", res.CycleStatus)
	}
	if !res.CycleTotalPaid.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("cycle total: got %s", res.CycleTotalPaid)
	}
	if !res.InvoiceSent {
		t.Fatal("expected invoice sent")
	}

	var records int64
	if err := f.db.Model(&paymentdomain.PaymentRecord{}).Count(&records).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if records != 1 {
		t.Fatalf("expected 1 payment record, got %d", records)
	}
}

func TestRecordPaymentSurvivesCycleWriteFailure(t *testing.T) {
	f := setupCoordinator(t)
	// No cycle seeded: the cycle-side write fails with no current
	// cycle while the legacy write succeeds.
	member := f.seedMember(t, 300, false)

	res, err := f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(100),
		Date:     date(2025, time.February, 1),
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	if res.BillingCycleUpdated {
		t.Fatal("cycle write should have been parked")
	}
	if !res.RemainingBalance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("remaining balance: got %s", res.RemainingBalance)
	}

	var updated memberdomain.Member
	if err := f.db.Where("id = ?", member.ID).Take(&updated).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if !updated.AmountOwed.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("legacy write lost: owed %s", updated.AmountOwed)
	}

	var tasks int64
	if err := f.db.Model(&domain.ReconciliationTask{}).
		Where("resolved_at IS NULL").Count(&tasks).Error; err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if tasks != 1 {
		t.Fatalf("expected 1 pending reconciliation task, got %d", tasks)
	}
}

func TestReconcilePendingRetriesParkedPayments(t *testing.T) {
	f := setupCoordinator(t)
	member := f.seedMember(t, 300, false)

	if _, err := f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(100),
		Date:     date(2025, time.February, 1),
	}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	// The cycle is still missing, so the retry fails too.
	resolved, err := f.svc.ReconcilePending(context.Background(), 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if resolved != 0 {
		t.Fatalf("expected 0 resolved, got %d", resolved)
	}

	// Backfill the cycle, then the retry succeeds.
	if _, err := f.cycleSvc.CreateInitialCycle(context.Background(), member); err != nil {
		t.Fatalf("backfill cycle: %v", err)
	}
	resolved, err = f.svc.ReconcilePending(context.Background(), 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("expected 1 resolved, got %d", resolved)
	}

	cycle, err := f.cycleSvc.CurrentCycle(context.Background(), member.ID.String())
	if err != nil {
		t.Fatalf("current cycle: %v", err)
	}
	if cycle.Status != billingcycledomain.CycleStatusPartiallyPaid {
		t.Fatalf("cycle status after reconcile: got %s", cycle.Status)
	}

	var pending int64
	if err := f.db.Model(&domain.ReconciliationTask{}).
		Where("resolved_at IS NULL").Count(&pending).Error; err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending tasks, got %d", pending)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	f := setupCoordinator(t)
	member := f.seedMember(t, 300, true)

	_, err := f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: "bogus",
		Amount:   decimal.NewFromInt(100),
		Date:     date(2025, time.February, 1),
	})
	if err != memberdomain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	_, err = f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.Zero,
		Date:     date(2025, time.February, 1),
	})
	if err != paymentdomain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = f.svc.RecordPayment(context.Background(), domain.RecordPaymentRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(100),
	})
	if err != paymentdomain.ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
