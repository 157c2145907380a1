// internal/trading/executor.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
)

// flight is the one outstanding order of a session.
type flight struct {
	epoch   uint64
	request domain.TradeRequest
}

// TradeExecutor submits orders and reconciles local state with the
// server's answer. At most one order per session is outstanding; it is
// never retried.
type TradeExecutor struct {
	api        API
	state      *stateStore
	profiles   *ProfileLoader
	portfolios *PortfolioLoader
	recon      *Reconciler
	publisher  Publisher
	logger     *zap.Logger

	mu       sync.Mutex
	inflight *flight
}

// Pending returns the order currently in flight for the live session, if any.
func (e *TradeExecutor) Pending() (domain.TradeRequest, bool) {
	_, epoch := e.state.session()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight == nil || e.inflight.epoch != epoch {
		return domain.TradeRequest{}, false
	}
	return e.inflight.request, true
}

func (e *TradeExecutor) acquire(epoch uint64, req domain.TradeRequest) (*flight, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight != nil && e.inflight.epoch == epoch {
		return nil, false
	}
	f := &flight{epoch: epoch, request: req}
	e.inflight = f
	return f, true
}

func (e *TradeExecutor) release(f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight == f {
		e.inflight = nil
	}
}

// Execute validates and submits req for token. On success the cash
// balance is replaced with the server's value and the portfolio is
// re-fetched before Execute returns.
func (e *TradeExecutor) Execute(ctx context.Context, token string, req domain.TradeRequest) (domain.TradeResult, error) {
	req, err := req.Normalize()
	if err != nil {
		return domain.TradeResult{}, err
	}
	current, epoch := e.state.session()
	if token == "" || token != current {
		return domain.TradeResult{}, domain.ErrNotAuthenticated
	}

	f, ok := e.acquire(epoch, req)
	if !ok {
		e.logger.Debug("Order rejected locally, another is pending", zap.Stringer("order", req))
		return domain.TradeResult{}, domain.ErrTradeInProgress
	}
	defer e.release(f)

	_ = e.publisher.Publish(events.TradeSubmittedEvent{BaseEvent: events.NewBase(events.TradeSubmitted), Request: req})
	e.logger.Info("Submitting order", zap.Stringer("order", req))

	res, err := e.api.Trade(ctx, token, req)
	if err != nil {
		err = e.tradeError(token, req, err)
		_ = e.publisher.Publish(events.TradeFailedEvent{BaseEvent: events.NewBase(events.TradeFailed), Request: req, Error: err})
		return domain.TradeResult{}, err
	}

	if res.BalanceReported {
		if !e.state.applyBalance(epoch, res.NewBalance) {
			e.logger.Debug("Session changed during order, balance not applied")
		}
	} else if _, perr := e.profiles.Sync(ctx, token); perr != nil && !errors.Is(perr, ErrSuperseded) {
		e.logger.Warn("Balance refresh after order failed", zap.Error(perr))
	}

	if _, perr := e.portfolios.Sync(ctx, token); perr != nil && !errors.Is(perr, ErrSuperseded) {
		e.logger.Warn("Portfolio refresh after order failed", zap.Error(perr))
	}

	e.logger.Info("Order executed",
		zap.Stringer("order", req),
		zap.Int64("applied_quantity", res.AppliedQuantity),
		zap.Bool("balance_reported", res.BalanceReported))
	_ = e.publisher.Publish(events.TradeCompletedEvent{BaseEvent: events.NewBase(events.TradeCompleted), Request: req, Result: res})
	return res, nil
}

func (e *TradeExecutor) tradeError(token string, req domain.TradeRequest, err error) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		e.recon.Invalidate(token, err)
		return fmt.Errorf("%s: %w", req, domain.ErrSessionInvalid)
	case isContextErr(err), errors.Is(err, api.ErrTransport):
		e.logger.Warn("Order outcome unknown", zap.Stringer("order", req), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrTradeFailed, err)
	}
	if reason, ok := api.Reason(err); ok {
		e.logger.Info("Order rejected", zap.Stringer("order", req), zap.String("reason", reason))
		return domain.Reject(domain.ErrTradeRejected, reason)
	}
	return fmt.Errorf("%w: %v", domain.ErrTradeFailed, err)
}
