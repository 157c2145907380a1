// internal/domain/profile.go
package domain

import "github.com/shopspring/decimal"

// Profile is the account identity and cash balance as last reported by the
// server. It is replaced wholesale, never patched field by field.
type Profile struct {
	Username    string
	DisplayName string
	Email       string
	CashBalance decimal.Decimal
}

// IsZero reports whether p is the empty profile held while anonymous.
func (p Profile) IsZero() bool {
	return p.Username == "" && p.DisplayName == "" && p.Email == "" && p.CashBalance.IsZero()
}

// WithBalance returns a copy of p carrying an authoritative new balance.
func (p Profile) WithBalance(balance decimal.Decimal) Profile {
	p.CashBalance = balance
	return p
}
