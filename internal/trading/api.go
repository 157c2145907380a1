// internal/trading/api.go

// Package trading keeps the local view of an account consistent with the
// trading server across logins, fetches and orders.
package trading

import (
	"context"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
)

// API is the subset of the trading server used by the synchronizer.
// *api.Client implements it.
type API interface {
	Login(ctx context.Context, identifier, password string) (api.LoginResult, error)
	Register(ctx context.Context, req api.RegisterRequest) (domain.Profile, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (domain.Profile, error)
	Portfolio(ctx context.Context, token string) (domain.Portfolio, error)
	Quote(ctx context.Context, token, symbol string) (domain.Quote, error)
	Trade(ctx context.Context, token string, req domain.TradeRequest) (domain.TradeResult, error)
	History(ctx context.Context, token string) ([]domain.Transaction, error)
	Market(ctx context.Context) ([]domain.MarketTick, error)
	Trending(ctx context.Context) ([]domain.Mover, error)
}

var _ API = (*api.Client)(nil)

// Publisher is where state changes are announced. *events.Bus implements it.
type Publisher interface {
	Publish(event events.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) error { return nil }
