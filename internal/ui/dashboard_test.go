package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/logger"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
)

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}

type fakeTrader struct {
	mu       sync.Mutex
	snap     trading.Snapshot
	state    trading.SessionState
	quotes   map[string]decimal.Decimal
	trades   []domain.TradeRequest
	tradeErr error
	balance  decimal.Decimal
}

func newFakeTrader() *fakeTrader {
	return &fakeTrader{
		state: trading.Authenticated,
		snap: trading.Snapshot{
			Authenticated: true,
			Profile: domain.Profile{
				Username:    "alice",
				DisplayName: "Alice A",
				CashBalance: decimal.RequireFromString("10000"),
			},
			Portfolio: domain.NewPortfolio([]domain.Holding{{
				Symbol:       "MSFT",
				Shares:       2,
				AverageCost:  decimal.RequireFromString("400"),
				CurrentPrice: decimal.RequireFromString("415.50"),
			}}),
		},
		quotes: map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("185.92")},
	}
}

func (f *fakeTrader) Subscribe(events.EventType, events.Handler) events.Subscription {
	return nopSubscription{}
}

func (f *fakeTrader) Snapshot() trading.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeTrader) State() trading.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTrader) SubmitTrade(_ context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, req)
	if f.tradeErr != nil {
		return domain.TradeResult{}, f.tradeErr
	}
	f.snap.Profile = f.snap.Profile.WithBalance(f.balance)
	return domain.TradeResult{NewBalance: f.balance, BalanceReported: true, AppliedQuantity: req.Quantity}, nil
}

func (f *fakeTrader) Refresh(context.Context) error { return nil }

func (f *fakeTrader) NewQuoteField(deliver func(trading.QuoteResult)) *trading.QuoteField {
	fetch := func(_ context.Context, symbol string) (domain.Quote, error) {
		price, ok := f.quotes[symbol]
		if !ok {
			return domain.Quote{}, fmt.Errorf("%w: invalid symbol", domain.ErrQuoteUnavailable)
		}
		return domain.Quote{Symbol: symbol, Name: symbol + " Inc.", Price: price}, nil
	}
	return trading.NewQuoteField(fetch, 0, deliver, zap.NewNop())
}

func newTestDashboard(t *testing.T, trader *fakeTrader) (*Dashboard, chan tea.Msg) {
	t.Helper()
	msgs := make(chan tea.Msg, 32)
	d := NewDashboard(trader, msgs, zap.NewNop())
	t.Cleanup(d.Close)
	d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return d, msgs
}

func typeText(d *Dashboard, text string) {
	d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func nextMsg(t *testing.T, msgs chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestDashboardRendersSnapshot(t *testing.T) {
	d, _ := newTestDashboard(t, newFakeTrader())

	view := d.View()
	assert.Contains(t, view, "Alice A (alice)")
	assert.Contains(t, view, "$10,000.00")
	assert.Contains(t, view, "$10,831.00", "total is cash plus holdings")
	assert.Contains(t, view, "MSFT")
	assert.Contains(t, view, "+3.88%")
}

func TestDashboardReloadsOnEvent(t *testing.T) {
	trader := newFakeTrader()
	d, _ := newTestDashboard(t, trader)

	trader.mu.Lock()
	trader.snap.Profile = trader.snap.Profile.WithBalance(decimal.RequireFromString("8140.80"))
	trader.mu.Unlock()

	_, cmd := d.Update(EventMsg{Event: events.ProfileUpdatedEvent{BaseEvent: events.NewBase(events.ProfileUpdated)}})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Contains(t, d.View(), "$8,140.80")
	assert.Contains(t, d.View(), "synced")
}

func TestDashboardQuoteField(t *testing.T) {
	d, msgs := newTestDashboard(t, newFakeTrader())

	typeText(d, "aapl")
	msg := nextMsg(t, msgs)
	qm, ok := msg.(QuoteMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "AAPL", qm.Result.Symbol)

	d.Update(qm)
	assert.Contains(t, d.View(), "AAPL $185.92")

	typeText(d, "x")
	msg = nextMsg(t, msgs)
	d.Update(msg)
	assert.Contains(t, d.View(), "invalid symbol")
}

func TestDashboardIgnoresQuoteForOldInput(t *testing.T) {
	d, _ := newTestDashboard(t, newFakeTrader())
	typeText(d, "MSFT")

	d.Update(QuoteMsg{Result: trading.QuoteResult{Symbol: "AAPL", Quote: domain.Quote{Symbol: "AAPL", Price: decimal.RequireFromString("1")}}})
	assert.NotContains(t, d.View(), "AAPL $1.00")
}

func TestDashboardSubmitOrder(t *testing.T) {
	trader := newFakeTrader()
	trader.balance = decimal.RequireFromString("8140.80")
	d, _ := newTestDashboard(t, trader)

	d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, paneOrder, d.focus)
	d.order.SetFieldValue(fieldSymbol, "aapl")
	d.order.SetFieldValue(fieldQuantity, "10")

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, d.submitting)

	_, again := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again, "a second submit waits for the first")
	assert.Contains(t, d.View(), "already processing")

	done := cmd()
	d.Update(done)
	assert.False(t, d.submitting)

	require.Len(t, trader.trades, 1)
	assert.Equal(t, domain.TradeRequest{Symbol: "aapl", Quantity: 10, Side: domain.SideBuy}, trader.trades[0])
	assert.Contains(t, d.View(), "Bought 10 AAPL, cash now $8,140.80")
	assert.Equal(t, "", d.order.GetValue(fieldQuantity), "form resets after success")
}

func TestDashboardRejectedOrderShowsReason(t *testing.T) {
	trader := newFakeTrader()
	trader.tradeErr = domain.Reject(domain.ErrTradeRejected, "insufficient funds")
	d, _ := newTestDashboard(t, trader)

	d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	d.order.SetFieldValue(fieldSymbol, "AAPL")
	d.order.SetFieldValue(fieldQuantity, "1000")
	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	d.Update(cmd())

	view := d.View()
	assert.Contains(t, view, "insufficient funds")
	assert.Contains(t, view, "$10,000.00", "balance unchanged")
	assert.Equal(t, "1000", d.order.GetValue(fieldQuantity), "form kept for correction")
}

func TestDashboardInvalidQuantity(t *testing.T) {
	trader := newFakeTrader()
	d, _ := newTestDashboard(t, trader)

	d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	d.order.SetFieldValue(fieldSymbol, "AAPL")
	d.order.SetFieldValue(fieldQuantity, "-3")
	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, trader.trades)
	assert.Contains(t, d.View(), "whole number")
}

func TestDashboardSessionInvalidated(t *testing.T) {
	trader := newFakeTrader()
	d, _ := newTestDashboard(t, trader)

	trader.mu.Lock()
	trader.state = trading.Anonymous
	trader.snap = trading.Snapshot{}
	trader.mu.Unlock()

	d.Update(EventMsg{Event: events.SessionChangedEvent{
		BaseEvent: events.NewBase(events.SessionChanged),
		Reason:    "invalidated",
	}})

	view := d.View()
	assert.Contains(t, view, "Session expired")
	assert.Contains(t, view, "signed out")
	assert.Contains(t, view, "No holdings yet")
}

func TestDashboardSyncFailureShown(t *testing.T) {
	d, _ := newTestDashboard(t, newFakeTrader())

	d.Update(EventMsg{Event: events.SyncFailedEvent{
		BaseEvent: events.NewBase(events.SyncFailed),
		Target:    "portfolio",
		Error:     fmt.Errorf("portfolio: %w: timeout", domain.ErrTransientFetch),
	}})
	view := d.View()
	assert.Contains(t, view, "portfolio sync failed")
	assert.Contains(t, view, "$10,000.00", "prior state kept")
}

func TestDashboardLogPanel(t *testing.T) {
	d, _ := newTestDashboard(t, newFakeTrader())
	buf, err := logger.NewLogBuffer(10, "")
	require.NoError(t, err)
	buf.Add(logger.LogEntry{Timestamp: time.Now(), Level: "debug", Message: "noisy detail"})
	buf.Add(logger.LogEntry{Timestamp: time.Now(), Level: "warn", Message: "Portfolio sync failed"})

	d.ShowLogs(buf)
	view := d.View()
	assert.Contains(t, view, "Portfolio sync failed")
	assert.NotContains(t, view, "noisy detail")

	d.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.NotContains(t, d.View(), "Portfolio sync failed")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.NewValidationError("quantity", "quantity must be positive"), "quantity must be positive"},
		{fmt.Errorf("wrap: %w", domain.Reject(domain.ErrTradeRejected, "insufficient shares")), "insufficient shares"},
		{domain.ErrTradeInProgress, "a trade is already processing"},
		{fmt.Errorf("BUY 1 AAPL: %w", domain.ErrSessionInvalid), "session expired, please log in again"},
		{domain.ErrNotAuthenticated, "not logged in"},
		{fmt.Errorf("%w: dial tcp", domain.ErrTradeFailed), "server unreachable, the order outcome is unknown; check history before retrying"},
		{fmt.Errorf("%w: invalid symbol", domain.ErrQuoteUnavailable), "quote unavailable: invalid symbol"},
		{errors.New("boom"), "boom"},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DescribeError(tt.err))
	}
}
