// internal/domain/holding.go
package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Holding is a position in one symbol. Shares is always positive for a
// holding that is part of a Portfolio.
type Holding struct {
	Symbol       string
	Shares       int64
	AverageCost  decimal.Decimal
	CurrentPrice decimal.Decimal
}

// MarketValue is Shares × CurrentPrice.
func (h Holding) MarketValue() decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(h.Shares))
}

// CostBasis is Shares × AverageCost.
func (h Holding) CostBasis() decimal.Decimal {
	return h.AverageCost.Mul(decimal.NewFromInt(h.Shares))
}

// UnrealizedGain is Shares × (CurrentPrice − AverageCost).
func (h Holding) UnrealizedGain() decimal.Decimal {
	return h.CurrentPrice.Sub(h.AverageCost).Mul(decimal.NewFromInt(h.Shares))
}

// GainPercent is the price change relative to the average cost, in percent.
// It is zero when the average cost is zero.
func (h Holding) GainPercent() decimal.Decimal {
	if h.AverageCost.IsZero() {
		return decimal.Zero
	}
	return h.CurrentPrice.Sub(h.AverageCost).Div(h.AverageCost).Mul(hundred)
}
