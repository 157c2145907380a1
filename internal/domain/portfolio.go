// internal/domain/portfolio.go
package domain

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const portfolioDegree = 8

func holdingLess(a, b Holding) bool { return a.Symbol < b.Symbol }

// Portfolio is an immutable set of holdings keyed by canonical symbol and
// iterated in symbol order. The zero value is the empty portfolio.
type Portfolio struct {
	tree *btree.BTreeG[Holding]
}

// NewPortfolio builds a portfolio from fetched holdings. Symbols are
// canonicalized, entries with Shares <= 0 are dropped, and a later entry
// for the same symbol replaces an earlier one.
func NewPortfolio(holdings []Holding) Portfolio {
	tree := btree.NewG[Holding](portfolioDegree, holdingLess)
	for _, h := range holdings {
		h.Symbol = CanonicalSymbol(h.Symbol)
		if h.Symbol == "" {
			continue
		}
		if h.Shares <= 0 {
			tree.Delete(h)
			continue
		}
		tree.ReplaceOrInsert(h)
	}
	return Portfolio{tree: tree}
}

// Len returns the number of holdings.
func (p Portfolio) Len() int {
	if p.tree == nil {
		return 0
	}
	return p.tree.Len()
}

// IsEmpty reports whether the portfolio has no holdings.
func (p Portfolio) IsEmpty() bool { return p.Len() == 0 }

// Holdings returns the holdings in symbol order.
func (p Portfolio) Holdings() []Holding {
	out := make([]Holding, 0, p.Len())
	p.Ascend(func(h Holding) bool {
		out = append(out, h)
		return true
	})
	return out
}

// Ascend calls fn for each holding in symbol order until fn returns false.
func (p Portfolio) Ascend(fn func(Holding) bool) {
	if p.tree == nil {
		return
	}
	p.tree.Ascend(btree.ItemIteratorG[Holding](fn))
}

// Holding looks up the holding for symbol.
func (p Portfolio) Holding(symbol string) (Holding, bool) {
	if p.tree == nil {
		return Holding{}, false
	}
	return p.tree.Get(Holding{Symbol: CanonicalSymbol(symbol)})
}

// SharesOf returns the shares held in symbol, zero if none.
func (p Portfolio) SharesOf(symbol string) int64 {
	h, ok := p.Holding(symbol)
	if !ok {
		return 0
	}
	return h.Shares
}

// TotalStocksValue is Σ Shares × CurrentPrice over all holdings.
func (p Portfolio) TotalStocksValue() decimal.Decimal {
	total := decimal.Zero
	p.Ascend(func(h Holding) bool {
		total = total.Add(h.MarketValue())
		return true
	})
	return total
}

// TotalValue is cash plus the market value of all holdings.
func (p Portfolio) TotalValue(cash decimal.Decimal) decimal.Decimal {
	return cash.Add(p.TotalStocksValue())
}

// UnrealizedGain sums the unrealized gain of every holding.
func (p Portfolio) UnrealizedGain() decimal.Decimal {
	total := decimal.Zero
	p.Ascend(func(h Holding) bool {
		total = total.Add(h.UnrealizedGain())
		return true
	})
	return total
}

// Equal reports whether both portfolios hold the same positions.
func (p Portfolio) Equal(o Portfolio) bool {
	a, b := p.Holdings(), o.Holdings()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Symbol != b[i].Symbol || a[i].Shares != b[i].Shares ||
			!a[i].AverageCost.Equal(b[i].AverageCost) || !a[i].CurrentPrice.Equal(b[i].CurrentPrice) {
			return false
		}
	}
	return true
}

// Valuation is the dashboard summary derived from a profile and portfolio.
type Valuation struct {
	Cash   decimal.Decimal
	Stocks decimal.Decimal
	Total  decimal.Decimal
	Gain   decimal.Decimal
}

// Value derives the valuation for the given cash balance and portfolio.
func Value(profile Profile, portfolio Portfolio) Valuation {
	stocks := portfolio.TotalStocksValue()
	return Valuation{
		Cash:   profile.CashBalance,
		Stocks: stocks,
		Total:  profile.CashBalance.Add(stocks),
		Gain:   portfolio.UnrealizedGain(),
	}
}
