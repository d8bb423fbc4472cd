package money_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/taskhive/taskhive-api/internal/pkg/money"
)

func TestParseAndString(t *testing.T) {
	m, err := money.Parse("9.60")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m != 9_600_000 {
		t.Fatalf("expected 9600000 micro, got %d", m)
	}
	if m.String() != "9.60" {
		t.Fatalf("expected 9.60, got %s", m.String())
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := money.Parse("not-a-number"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestDiamondsToUSDT(t *testing.T) {
	rate := decimal.RequireFromString("0.05")
	got := money.DiamondsToUSDT(60, rate)
	if got != 3_000_000 {
		t.Fatalf("expected 3.00 USDT (3000000 micro), got %d", got)
	}

	// 33 * 0.0333 = 1.0989, rounds to 1.10
	odd := decimal.RequireFromString("0.0333")
	if got := money.DiamondsToUSDT(33, odd); got != 1_100_000 {
		t.Fatalf("expected 1100000 micro after rounding, got %d", got)
	}
}

func TestFee(t *testing.T) {
	amount, _ := money.Parse("9.60")
	fee := money.Fee(amount, decimal.RequireFromString("0.05"))
	if fee != 480_000 {
		t.Fatalf("expected fee 0.48 (480000 micro), got %d", fee)
	}
	if total := amount + fee; total != 10_080_000 {
		t.Fatalf("expected total debit 10.08, got %s", money.Micro(total))
	}
}

func TestDiamondsFromUSDT(t *testing.T) {
	perUSDT := decimal.RequireFromString("20")
	if got := money.DiamondsFromUSDT(decimal.RequireFromString("2.55"), perUSDT); got != 51 {
		t.Fatalf("expected 51 diamonds, got %d", got)
	}
	// truncation, never round up
	if got := money.DiamondsFromUSDT(decimal.RequireFromString("0.049"), perUSDT); got != 0 {
		t.Fatalf("expected 0 diamonds for dust amount, got %d", got)
	}
}

func TestCostUSD(t *testing.T) {
	price := decimal.RequireFromString("0.10")
	if got := money.CostUSD(250, price); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected 25.00, got %s", got)
	}
}

func TestNoDriftAcrossRepeatedConversions(t *testing.T) {
	rate := decimal.RequireFromString("0.01")
	var total money.Micro
	for i := 0; i < 1000; i++ {
		total += money.DiamondsToUSDT(1, rate)
	}
	if total != 10_000_000 {
		t.Fatalf("expected exactly 10.00 USDT after 1000 conversions, got %s", total)
	}
}
