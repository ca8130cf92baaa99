package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassifySameDayAsJoin(t *testing.T) {
	start := date(2025, time.January, 15)
	due := date(2025, time.February, 15)

	if got := Classify(start, due, date(2025, time.January, 15)); got != SameDaySettlement {
		t.Fatalf("payment on join day: expected SameDaySettlement, got %s", got)
	}
}

func TestClassifyEarlyPaymentIsStandard(t *testing.T) {
	start := date(2025, time.January, 15)
	due := date(2025, time.February, 15)

	// Before the due date but after the join day: still a standard
	// occurrence. The narrow rule is intentional.
	if got := Classify(start, due, date(2025, time.February, 10)); got != StandardOccurrence {
		t.Fatalf("early payment: expected StandardOccurrence, got %s", got)
	}
	if got := Classify(start, due, date(2025, time.January, 16)); got != StandardOccurrence {
		t.Fatalf("day after join: expected StandardOccurrence, got %s", got)
	}
}

func TestClassifyLatePaymentIsStandard(t *testing.T) {
	start := date(2025, time.January, 15)
	due := date(2025, time.February, 15)

	if got := Classify(start, due, date(2025, time.March, 1)); got != StandardOccurrence {
		t.Fatalf("late payment: expected StandardOccurrence, got %s", got)
	}
}

func TestResolveBalancePartial(t *testing.T) {
	res := ResolveBalance(decimal.NewFromInt(300), decimal.NewFromInt(100))
	if res.IsFull {
		t.Fatal("expected partial resolution")
	}
	if !res.Remaining.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected remaining 200, got %s", res.Remaining)
	}
}

func TestResolveBalanceExact(t *testing.T) {
	res := ResolveBalance(decimal.NewFromInt(300), decimal.NewFromInt(300))
	if !res.IsFull {
		t.Fatal("expected full resolution")
	}
	if !res.Remaining.IsZero() {
		t.Fatalf("expected remaining 0, got %s", res.Remaining)
	}
}

func TestResolveBalanceOverpaymentClampsToZero(t *testing.T) {
	res := ResolveBalance(decimal.NewFromInt(300), decimal.NewFromInt(500))
	if !res.IsFull {
		t.Fatal("expected full resolution")
	}
	if !res.Remaining.IsZero() {
		t.Fatalf("overpayment must clamp to zero, got %s", res.Remaining)
	}
}
