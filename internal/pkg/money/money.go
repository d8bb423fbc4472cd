package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Micro is a USDT amount in integer micro-units (1 USDT = 1_000_000 micro).
// Balances and ledger amounts are stored in micro-units so repeated
// conversions never accumulate floating-point drift; decimal formatting
// happens only at the API boundary.
type Micro int64

const MicroPerUSDT = 1_000_000

var microFactor = decimal.NewFromInt(MicroPerUSDT)

// FromDecimal converts a decimal USDT amount to micro-units.
// Sub-micro precision is rounded half-up.
func FromDecimal(d decimal.Decimal) Micro {
	return Micro(d.Mul(microFactor).Round(0).IntPart())
}

// Parse parses a decimal string ("9.60") into micro-units.
func Parse(s string) (Micro, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal returns the exact decimal value of m.
func (m Micro) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(microFactor)
}

// String renders m with two decimal places for display.
func (m Micro) String() string {
	return m.Decimal().StringFixed(2)
}

// Round2 rounds to two decimal places, the display precision for USDT.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DiamondsToUSDT computes the USDT credited for converting the given number
// of diamonds at rate USDT-per-diamond, rounded to two decimal places.
func DiamondsToUSDT(diamonds int64, rate decimal.Decimal) Micro {
	return FromDecimal(Round2(decimal.NewFromInt(diamonds).Mul(rate)))
}

// Fee computes the withdrawal fee for amount at feeRate, rounded to two
// decimal places.
func Fee(amount Micro, feeRate decimal.Decimal) Micro {
	return FromDecimal(Round2(amount.Decimal().Mul(feeRate)))
}

// DiamondsFromUSDT computes the diamonds credited for a USDT amount at
// diamondsPerUSDT, truncated toward zero.
func DiamondsFromUSDT(usdt decimal.Decimal, diamondsPerUSDT decimal.Decimal) int64 {
	return usdt.Mul(diamondsPerUSDT).Floor().IntPart()
}

// CostUSD computes the fiat-equivalent cost of buying qty diamonds at
// pricePerDiamond USD, rounded to two decimal places.
func CostUSD(qty int64, pricePerDiamond decimal.Decimal) decimal.Decimal {
	return Round2(decimal.NewFromInt(qty).Mul(pricePerDiamond))
}
