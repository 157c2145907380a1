// internal/trading/state.go
package trading

import (
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
)

type target int

const (
	targetProfile target = iota
	targetPortfolio
	targetCount
)

func (t target) String() string {
	if t == targetProfile {
		return "profile"
	}
	return "portfolio"
}

// ticket identifies one outstanding fetch. A result is applied only if its
// epoch is still current and no newer request for the same target has
// already been applied.
type ticket struct {
	epoch uint64
	seq   uint64
}

// Snapshot is a consistent copy of the synchronized state.
type Snapshot struct {
	Epoch         uint64
	Authenticated bool
	Profile       domain.Profile
	Portfolio     domain.Portfolio
}

// Valuation derives the dashboard totals from the snapshot.
func (s Snapshot) Valuation() domain.Valuation {
	return domain.Value(s.Profile, s.Portfolio)
}

// stateStore owns Profile and Portfolio. Every mutation happens under mu
// and is announced while still holding it, so subscribers see changes in
// the order they were applied.
type stateStore struct {
	mu        sync.RWMutex
	token     string
	epoch     uint64
	profile   domain.Profile
	portfolio domain.Portfolio
	issued    [targetCount]uint64
	applied   [targetCount]uint64
	publisher Publisher

	// balanceSeq is the last profile seq issued before a trade balance was
	// applied. Profile fetches up to it carry a pre-trade balance.
	balanceSeq uint64

	// Statistics (accessed atomically)
	applies   uint64
	discarded uint64
}

func newStateStore(publisher Publisher) *stateStore {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &stateStore{publisher: publisher}
}

// reset starts a new epoch for token and clears Profile and Portfolio
// together. It returns the new epoch.
func (s *stateStore) reset(token, reason string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.token = token
	s.profile = domain.Profile{}
	s.portfolio = domain.Portfolio{}
	s.issued = [targetCount]uint64{}
	s.applied = [targetCount]uint64{}
	s.balanceSeq = 0

	_ = s.publisher.Publish(events.SessionChangedEvent{
		BaseEvent:     events.NewBase(events.SessionChanged),
		Authenticated: token != "",
		Epoch:         s.epoch,
		Reason:        reason,
	})
	_ = s.publisher.Publish(events.ProfileUpdatedEvent{BaseEvent: events.NewBase(events.ProfileUpdated)})
	_ = s.publisher.Publish(events.PortfolioUpdatedEvent{BaseEvent: events.NewBase(events.PortfolioUpdated)})

	return s.epoch
}

// begin issues a ticket for a fetch made with token. ok is false when
// token is no longer the session token.
func (s *stateStore) begin(t target, token string) (ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || token != s.token {
		return ticket{}, false
	}
	s.issued[t]++
	return ticket{epoch: s.epoch, seq: s.issued[t]}, true
}

// admit reports whether tk may be applied to t. Caller holds mu.
func (s *stateStore) admit(t target, tk ticket) bool {
	if tk.epoch != s.epoch || tk.seq <= s.applied[t] {
		atomic.AddUint64(&s.discarded, 1)
		return false
	}
	s.applied[t] = tk.seq
	atomic.AddUint64(&s.applies, 1)
	return true
}

func (s *stateStore) applyProfile(tk ticket, p domain.Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.admit(targetProfile, tk) {
		return false
	}
	if tk.seq <= s.balanceSeq {
		p = p.WithBalance(s.profile.CashBalance)
	}
	s.profile = p
	_ = s.publisher.Publish(events.ProfileUpdatedEvent{BaseEvent: events.NewBase(events.ProfileUpdated), Profile: p})
	return true
}

func (s *stateStore) applyPortfolio(tk ticket, p domain.Portfolio) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.admit(targetPortfolio, tk) {
		return false
	}
	s.portfolio = p
	_ = s.publisher.Publish(events.PortfolioUpdatedEvent{BaseEvent: events.NewBase(events.PortfolioUpdated), Portfolio: p})
	return true
}

// applyBalance overwrites the cash balance with an authoritative value
// from a trade response. Profile fetches issued before this point still
// apply their other fields but keep this balance.
func (s *stateStore) applyBalance(epoch uint64, balance decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.token == "" {
		atomic.AddUint64(&s.discarded, 1)
		return false
	}
	s.balanceSeq = s.issued[targetProfile]
	s.profile = s.profile.WithBalance(balance)
	atomic.AddUint64(&s.applies, 1)
	_ = s.publisher.Publish(events.ProfileUpdatedEvent{BaseEvent: events.NewBase(events.ProfileUpdated), Profile: s.profile})
	return true
}

// session returns the current token and epoch.
func (s *stateStore) session() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.epoch
}

func (s *stateStore) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Epoch:         s.epoch,
		Authenticated: s.token != "",
		Profile:       s.profile,
		Portfolio:     s.portfolio,
	}
}

// stats returns how many results were applied and how many discarded as stale.
func (s *stateStore) stats() (applies, discarded uint64) {
	return atomic.LoadUint64(&s.applies), atomic.LoadUint64(&s.discarded)
}
