// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// Session events
	SessionChanged EventType = "session.changed"

	// State events
	ProfileUpdated   EventType = "profile.updated"
	PortfolioUpdated EventType = "portfolio.updated"
	SyncFailed       EventType = "sync.failed"

	// Trade events
	TradeSubmitted EventType = "trade.submitted"
	TradeCompleted EventType = "trade.completed"
	TradeFailed    EventType = "trade.failed"

	// Quote events
	QuoteUpdated EventType = "quote.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps a BaseEvent with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SessionChangedEvent is emitted when the session is established or torn down.
type SessionChangedEvent struct {
	BaseEvent
	Authenticated bool
	Epoch         uint64
	Reason        string // "login", "restore", "logout", "invalidated"
}

// ProfileUpdatedEvent carries a newly applied profile.
type ProfileUpdatedEvent struct {
	BaseEvent
	Profile domain.Profile
}

// PortfolioUpdatedEvent carries a newly applied portfolio.
type PortfolioUpdatedEvent struct {
	BaseEvent
	Portfolio domain.Portfolio
}

// SyncFailedEvent is emitted when a profile or portfolio fetch fails
// without invalidating the session.
type SyncFailedEvent struct {
	BaseEvent
	Target string // "profile" or "portfolio"
	Error  error
}

// TradeSubmittedEvent is emitted when an order leaves the client.
type TradeSubmittedEvent struct {
	BaseEvent
	Request domain.TradeRequest
}

// TradeCompletedEvent is emitted after the server accepted an order.
type TradeCompletedEvent struct {
	BaseEvent
	Request domain.TradeRequest
	Result  domain.TradeResult
}

// TradeFailedEvent is emitted for rejected or failed orders.
type TradeFailedEvent struct {
	BaseEvent
	Request domain.TradeRequest
	Error   error
}

// QuoteUpdatedEvent is emitted when a fresh quote is delivered.
type QuoteUpdatedEvent struct {
	BaseEvent
	Quote domain.Quote
}
