// internal/api/wire.go
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire types of the trading API. The simulator serves exactly these shapes.

type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type RegisterRequest struct {
	FullNames    string `json:"full_names"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FullNames string          `json:"full_names"`
	Cash      decimal.Decimal `json:"cash"`
}

type Holding struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// PortfolioResponse also reports cash; the client ignores it because the
// profile owns the balance.
type PortfolioResponse struct {
	Holdings []Holding      `json:"holdings"`
	Cash     decimal.Decimal `json:"cash"`
}

type QuoteRequest struct {
	Symbol string `json:"symbol"`
}

type QuoteResponse struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// TradeResponse carries the authoritative balance after the order.
// NewBalance is nil when the server did not report it.
type TradeResponse struct {
	Message    string           `json:"message"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
	Quantity   int64            `json:"quantity"`
}

type Transaction struct {
	ID              int64           `json:"id"`
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	TransactionType string          `json:"transaction_type"`
	Timestamp       time.Time       `json:"timestamp"`
}

type HistoryResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type MarketTick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Mover is one trending stock. Change is a percentage such as "-1.25%".
type Mover struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Change string          `json:"change"`
}

type TrendingResponse struct {
	Stocks []Mover `json:"stocks"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
