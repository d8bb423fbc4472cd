package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rates is the engine's current rate table, returned with balance queries
// and applied to every money-movement operation.
type Rates struct {
	DiamondPriceUSD decimal.Decimal `json:"diamond_price_usd"`
	DiamondToUSDT   decimal.Decimal `json:"diamond_to_usdt"`
	WithdrawFeeRate decimal.Decimal `json:"withdraw_fee_rate"`
	DiamondsPerUSDT decimal.Decimal `json:"diamonds_per_usdt"`
}

// ParseRates builds a rate table from config strings, failing fast on
// malformed values rather than defaulting silently.
func ParseRates(priceUSD, diamondToUSDT, withdrawFee, diamondsPerUSDT string) (Rates, error) {
	var r Rates
	var err error

	if r.DiamondPriceUSD, err = decimal.NewFromString(priceUSD); err != nil {
		return r, fmt.Errorf("invalid diamond price %q: %w", priceUSD, err)
	}
	if r.DiamondToUSDT, err = decimal.NewFromString(diamondToUSDT); err != nil {
		return r, fmt.Errorf("invalid diamond-to-usdt rate %q: %w", diamondToUSDT, err)
	}
	if r.WithdrawFeeRate, err = decimal.NewFromString(withdrawFee); err != nil {
		return r, fmt.Errorf("invalid withdraw fee rate %q: %w", withdrawFee, err)
	}
	if r.DiamondsPerUSDT, err = decimal.NewFromString(diamondsPerUSDT); err != nil {
		return r, fmt.Errorf("invalid diamonds-per-usdt rate %q: %w", diamondsPerUSDT, err)
	}

	if r.DiamondPriceUSD.IsNegative() || r.DiamondToUSDT.IsNegative() ||
		r.WithdrawFeeRate.IsNegative() || r.DiamondsPerUSDT.IsNegative() {
		return r, fmt.Errorf("rates must be non-negative")
	}

	return r, nil
}
