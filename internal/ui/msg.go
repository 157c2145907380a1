// internal/ui/msg.go
package ui

import (
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
)

// EventMsg wraps a synchronizer event for the UI.
type EventMsg struct {
	Event events.Event
}

// QuoteMsg carries the result for the latest quote field input.
type QuoteMsg struct {
	Result trading.QuoteResult
}

// TradeDoneMsg reports the outcome of a submitted order.
type TradeDoneMsg struct {
	Request domain.TradeRequest
	Result  domain.TradeResult
	Err     error
}

// RefreshDoneMsg reports the outcome of a manual refresh.
type RefreshDoneMsg struct {
	Err error
}
