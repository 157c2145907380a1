// internal/domain/trade.go
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", NewValidationError("side", fmt.Sprintf("unknown side %q", s))
}

// Valid reports whether s is a known side.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Lower returns the lowercase form used in URLs and history records.
func (s Side) Lower() string { return strings.ToLower(string(s)) }

// TradeRequest is a single order intent.
type TradeRequest struct {
	Symbol   string
	Quantity int64
	Side     Side
}

// Normalize checks the local preconditions and returns the request with a
// canonical symbol. These checks are a convenience; the server decides.
func (r TradeRequest) Normalize() (TradeRequest, error) {
	r.Symbol = CanonicalSymbol(r.Symbol)
	if r.Symbol == "" {
		return r, NewValidationError("symbol", "symbol is required")
	}
	if r.Quantity <= 0 {
		return r, NewValidationError("quantity", "quantity must be positive")
	}
	if !r.Side.Valid() {
		return r, NewValidationError("side", fmt.Sprintf("unknown side %q", r.Side))
	}
	return r, nil
}

func (r TradeRequest) String() string {
	return fmt.Sprintf("%s %d %s", r.Side, r.Quantity, r.Symbol)
}

// TradeResult is the server's acknowledgement of an executed order.
// When BalanceReported is false the server did not send the new balance
// and the caller must re-fetch it.
type TradeResult struct {
	NewBalance      decimal.Decimal
	BalanceReported bool
	AppliedQuantity int64
	Message         string
}

// TradeEstimate is a display-only preview of an order. It never feeds
// into Profile or Portfolio.
type TradeEstimate struct {
	Request   TradeRequest
	Price     decimal.Decimal
	Amount    decimal.Decimal
	CashAfter decimal.Decimal
	Feasible  bool
}

// EstimateTrade previews the cost or proceeds of req at price given the
// current cash and holdings.
func EstimateTrade(req TradeRequest, price, cash decimal.Decimal, portfolio Portfolio) TradeEstimate {
	amount := price.Mul(decimal.NewFromInt(req.Quantity))
	est := TradeEstimate{Request: req, Price: price, Amount: amount}
	switch req.Side {
	case SideBuy:
		est.CashAfter = cash.Sub(amount)
		est.Feasible = req.Quantity > 0 && !est.CashAfter.IsNegative()
	case SideSell:
		est.CashAfter = cash.Add(amount)
		est.Feasible = req.Quantity > 0 && portfolio.SharesOf(req.Symbol) >= req.Quantity
	}
	return est
}
