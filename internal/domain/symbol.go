// internal/domain/symbol.go
package domain

import "strings"

// CanonicalSymbol returns the canonical form of a ticker symbol: trimmed
// and uppercased. Every symbol sent to the server or used as a holding key
// goes through it.
func CanonicalSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
