// internal/domain/market.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price for one symbol.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

// MarketTick is one entry of the public market snapshot.
type MarketTick struct {
	Symbol string
	Price  decimal.Decimal
}

// Mover is a symbol whose price moved since the session open.
type Mover struct {
	Symbol        string
	Price         decimal.Decimal
	ChangePercent decimal.Decimal
}

// Transaction is an executed order from the account history.
type Transaction struct {
	ID        int64
	Symbol    string
	Quantity  int64
	Price     decimal.Decimal
	Side      Side
	Timestamp time.Time
}

// Amount is Quantity × Price.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
