package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gymdesk/gymdesk/internal/clock"
	memberdomain "github.com/gymdesk/gymdesk/internal/member/domain"
	"github.com/gymdesk/gymdesk/internal/payment/domain"
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

func setupLedger(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&memberdomain.Member{}, &domain.PaymentRecord{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(date(2025, time.January, 15)),
		Email: &email.NoOpProvider{},
	}).(*Service)

	return svc, dbConn, node
}

func seedMember(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, fee int64, start, nextDue time.Time) memberdomain.Member {
	t.Helper()

	member := memberdomain.Member{
		ID:                   node.Generate(),
		Name:                 "Jamie Rivers",
		Email:                "jamie@example.test",
		MonthlyFee:           decimal.NewFromInt(fee),
		StartDate:            start,
		NextPaymentDate:      nextDue,
		PaymentStatus:        memberdomain.PaymentStatusDue,
		AmountOwed:           decimal.NewFromInt(fee),
		BillingIntervalDays:  30,
		AutoRemindersEnabled: true,
		Status:               memberdomain.MemberStatusActive,
		Metadata:             datatypes.JSONMap{},
		CreatedAt:            start,
		UpdatedAt:            start,
	}
	if err := dbConn.Create(&member).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
	return member
}

func TestApplySameDaySettlementDoesNotAdvanceDueDate(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	res, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(300),
		Date:     date(2025, time.January, 15),
		Method:   "cash",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.Classification != domain.SameDaySettlement {
		t.Fatalf("expected same-day settlement, got %s", res.Classification)
	}
	if res.Member.PaymentStatus != memberdomain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", res.Member.PaymentStatus)
	}
	if !res.Member.NextPaymentDate.Equal(date(2025, time.February, 15)) {
		t.Fatalf("due date must not advance, got %s", res.Member.NextPaymentDate)
	}
	if !res.Record.NewDueDate.Equal(date(2025, time.February, 15)) {
		t.Fatalf("audit new_due_date: got %s", res.Record.NewDueDate)
	}
}

func TestApplyEarlyFullPaymentAdvancesDueDate(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	res, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(300),
		Date:     date(2025, time.February, 10),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.Classification != domain.StandardOccurrence {
		t.Fatalf("expected standard occurrence, got %s", res.Classification)
	}
	if !res.Member.NextPaymentDate.Equal(date(2025, time.March, 15)) {
		t.Fatalf("expected advance to 2025-03-15, got %s", res.Member.NextPaymentDate)
	}
	if res.Member.PaymentStatus != memberdomain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", res.Member.PaymentStatus)
	}
}

func TestApplyPartialPaymentNeverAdvancesDueDate(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	res, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(100),
		Date:     date(2025, time.January, 20),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if res.IsFull {
		t.Fatal("expected partial payment")
	}
	if res.Member.PaymentStatus != memberdomain.PaymentStatusDue {
		t.Fatalf("expected due, got %s", res.Member.PaymentStatus)
	}
	if !res.Member.AmountOwed.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected owed 200, got %s", res.Member.AmountOwed)
	}
	if !res.Member.NextPaymentDate.Equal(date(2025, time.February, 15)) {
		t.Fatalf("due date must stay 2025-02-15, got %s", res.Member.NextPaymentDate)
	}

	// The advance that was computed but not applied is still recorded
	// for the audit trail.
	if !res.Record.NewDueDate.Equal(date(2025, time.March, 15)) {
		t.Fatalf("audit new_due_date: expected 2025-03-15, got %s", res.Record.NewDueDate)
	}
	if !res.Record.PreviousDueDate.Equal(date(2025, time.February, 15)) {
		t.Fatalf("audit previous_due_date: got %s", res.Record.PreviousDueDate)
	}
}

func TestApplyOverpaymentClampsOwedToZero(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	res, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(500),
		Date:     date(2025, time.February, 20),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !res.Member.AmountOwed.IsZero() {
		t.Fatalf("expected owed 0, got %s", res.Member.AmountOwed)
	}
	if res.Member.PaymentStatus != memberdomain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", res.Member.PaymentStatus)
	}
}

func TestApplyDefaultsOwedToMonthlyFee(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	// Simulate a pre-ledger row that never had amount_owed seeded.
	if err := dbConn.Exec(`UPDATE members SET amount_owed = 0 WHERE id = ?`, member.ID).Error; err != nil {
		t.Fatalf("reset owed: %v", err)
	}

	res, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(100),
		Date:     date(2025, time.February, 1),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !res.Member.AmountOwed.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected owed 200 (fee 300 - 100), got %s", res.Member.AmountOwed)
	}
}

func TestApplyValidation(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	_, err := svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: member.ID.String(),
		Amount:   decimal.NewFromInt(-50),
		Date:     date(2025, time.February, 1),
	})
	if err != domain.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = svc.Apply(context.Background(), domain.ApplyRequest{
		MemberID: node.Generate().String(),
		Amount:   decimal.NewFromInt(50),
		Date:     date(2025, time.February, 1),
	})
	if err != memberdomain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Neither failure may leave a record behind.
	var count int64
	if err := dbConn.Model(&domain.PaymentRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 records after failed applies, got %d", count)
	}
}

func TestApplyAppendsAuditRecordPerPayment(t *testing.T) {
	svc, dbConn, node := setupLedger(t)
	member := seedMember(t, dbConn, node, 300, date(2025, time.January, 15), date(2025, time.February, 15))

	for _, amount := range []int64{100, 100, 100} {
		if _, err := svc.Apply(context.Background(), domain.ApplyRequest{
			MemberID: member.ID.String(),
			Amount:   decimal.NewFromInt(amount),
			Date:     date(2025, time.February, 1),
		}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	records, err := svc.ListByMember(context.Background(), domain.ListByMemberRequest{
		MemberID: member.ID.String(),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}
