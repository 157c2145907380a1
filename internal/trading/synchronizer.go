// internal/trading/synchronizer.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/session"
)

// Options configures a Synchronizer.
type Options struct {
	// QuoteDebounce is the delay a QuoteField waits after the last keystroke.
	QuoteDebounce time.Duration
}

// Synchronizer is the single entry point for presentation code. It wires
// the token store to the loaders, executor and reconciler and keeps the
// local Profile and Portfolio consistent with the server.
type Synchronizer struct {
	api       API
	tokens    *session.TokenStore
	bus       *events.Bus
	publisher Publisher
	state     *stateStore
	recon     *Reconciler
	profiles  *ProfileLoader
	portfolio *PortfolioLoader
	quotes    *QuoteGateway
	executor  *TradeExecutor
	opts      Options
	logger    *zap.Logger

	syncMu     sync.Mutex
	syncCancel context.CancelFunc
	syncDone   chan struct{}
	syncErr    error

	unsubscribe func()
}

// NewSynchronizer builds the synchronizer and subscribes it to tokens.
// Call tokens.Restore afterwards to pick up a persisted session.
func NewSynchronizer(client API, tokens *session.TokenStore, bus *events.Bus, opts Options, logger *zap.Logger) *Synchronizer {
	log := logger.Named("sync")
	var pub Publisher = nopPublisher{}
	if bus != nil {
		pub = bus
	}

	state := newStateStore(pub)
	recon := NewReconciler(tokens, client, log)
	s := &Synchronizer{
		api:       client,
		tokens:    tokens,
		bus:       bus,
		publisher: pub,
		state:     state,
		recon:     recon,
		opts:      opts,
		logger:    log,
	}
	s.profiles = &ProfileLoader{api: client, state: state, recon: recon, publisher: pub, logger: log.Named("profile")}
	s.portfolio = &PortfolioLoader{api: client, state: state, recon: recon, publisher: pub, logger: log.Named("portfolio")}
	s.quotes = &QuoteGateway{api: client, recon: recon, logger: log.Named("quote")}
	s.executor = &TradeExecutor{
		api:        client,
		state:      state,
		profiles:   s.profiles,
		portfolios: s.portfolio,
		recon:      recon,
		publisher:  pub,
		logger:     log.Named("executor"),
	}

	s.unsubscribe = tokens.Subscribe(s.onTokenChange)
	return s
}

// onTokenChange runs inside the token store's notification. It resets
// state for the new token and starts the background sync; it must not
// wait for that sync.
func (s *Synchronizer) onTokenChange(c session.Change) {
	reason := s.recon.reasonFor(c)
	s.cancelSync()
	epoch := s.state.reset(c.Current, reason)

	s.logger.Debug("Session changed",
		zap.String("reason", reason),
		zap.Bool("authenticated", c.Current != ""),
		zap.Uint64("epoch", epoch))

	if c.Current != "" {
		s.startSync(c.Current)
	}
}

func (s *Synchronizer) startSync(token string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.syncMu.Lock()
	s.syncCancel = cancel
	s.syncDone = done
	s.syncMu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		err := s.syncAll(ctx, token)
		if err != nil && isContextErr(err) {
			return
		}
		if err != nil {
			s.logger.Debug("Background sync incomplete", zap.Error(err))
		}
		s.syncMu.Lock()
		if s.syncDone == done {
			s.syncErr = err
		}
		s.syncMu.Unlock()
	}()
}

func (s *Synchronizer) cancelSync() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.syncErr = nil
	if s.syncCancel != nil {
		s.syncCancel()
		s.syncCancel = nil
	}
}

// syncAll fetches profile and portfolio concurrently. An auth failure on
// either cancels the other; transient failures are collected.
func (s *Synchronizer) syncAll(ctx context.Context, token string) error {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var transient []error
	run := func(fetch func(context.Context, string) error) func() error {
		return func() error {
			err := fetch(gctx, token)
			switch {
			case err == nil, errors.Is(err, ErrSuperseded):
				return nil
			case errors.Is(err, domain.ErrSessionInvalid):
				return err
			}
			mu.Lock()
			transient = append(transient, err)
			mu.Unlock()
			return nil
		}
	}

	g.Go(run(func(ctx context.Context, token string) error {
		_, err := s.profiles.Sync(ctx, token)
		return err
	}))
	g.Go(run(func(ctx context.Context, token string) error {
		_, err := s.portfolio.Sync(ctx, token)
		return err
	}))

	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(transient...)
}

// WaitIdle blocks until the background sync started by the latest session
// change has finished, or ctx is done.
func (s *Synchronizer) WaitIdle(ctx context.Context) error {
	for {
		s.syncMu.Lock()
		done := s.syncDone
		s.syncMu.Unlock()
		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.syncMu.Lock()
		same := s.syncDone == done
		s.syncMu.Unlock()
		if same {
			return nil
		}
	}
}

// Close detaches from the token store and cancels background work.
func (s *Synchronizer) Close() {
	s.unsubscribe()
	s.cancelSync()
}

// Login authenticates and installs the new session. The profile is
// returned as reported by the login response; the synchronized profile
// arrives through the background sync.
func (s *Synchronizer) Login(ctx context.Context, identifier, password string) (domain.Profile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.Profile{}, domain.NewValidationError("username_or_email", "username or email is required")
	}
	if password == "" {
		return domain.Profile{}, domain.NewValidationError("password", "password is required")
	}

	res, err := s.api.Login(ctx, identifier, password)
	if err != nil {
		if reason, ok := api.Reason(err); ok && !errors.Is(err, api.ErrTransport) {
			return domain.Profile{}, domain.Reject(domain.ErrLoginRejected, reason)
		}
		return domain.Profile{}, fmt.Errorf("login: %w", err)
	}

	s.tokens.Set(res.Token)
	s.logger.Info("Logged in", zap.String("user", res.Profile.Username))
	return res.Profile, nil
}

// RegisterInput is a sign-up form.
type RegisterInput struct {
	FullNames    string
	Username     string
	Email        string
	Password     string
	Confirmation string
}

func (in RegisterInput) validate() error {
	switch {
	case strings.TrimSpace(in.FullNames) == "":
		return domain.NewValidationError("full_names", "full name is required")
	case strings.TrimSpace(in.Username) == "":
		return domain.NewValidationError("username", "username is required")
	case !strings.Contains(in.Email, "@"):
		return domain.NewValidationError("email", "a valid email is required")
	case in.Password == "":
		return domain.NewValidationError("password", "password is required")
	case in.Password != in.Confirmation:
		return domain.NewValidationError("confirmation", "passwords do not match")
	}
	return nil
}

// Register creates an account. It does not change the session.
func (s *Synchronizer) Register(ctx context.Context, in RegisterInput) (domain.Profile, error) {
	if err := in.validate(); err != nil {
		return domain.Profile{}, err
	}
	p, err := s.api.Register(ctx, api.RegisterRequest{
		FullNames:    strings.TrimSpace(in.FullNames),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		Password:     in.Password,
		Confirmation: in.Confirmation,
	})
	if err != nil {
		if reason, ok := api.Reason(err); ok && !errors.Is(err, api.ErrTransport) {
			return domain.Profile{}, domain.Reject(domain.ErrRegistrationRejected, reason)
		}
		return domain.Profile{}, fmt.Errorf("register: %w", err)
	}
	s.logger.Info("Account registered", zap.String("user", p.Username))
	return p, nil
}

// Logout ends the session. It always succeeds locally.
func (s *Synchronizer) Logout(ctx context.Context) {
	s.recon.Logout(ctx)
}

// Refresh re-fetches profile and portfolio for the current session.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	token := s.tokens.Get()
	if token == "" {
		return domain.ErrNotAuthenticated
	}
	err := s.syncAll(ctx, token)
	if !isContextErr(err) {
		s.syncMu.Lock()
		s.syncErr = err
		s.syncMu.Unlock()
	}
	return err
}

// LastSyncError returns the error of the most recent profile and portfolio
// sync for the current session, or nil when it succeeded.
func (s *Synchronizer) LastSyncError() error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.syncErr
}

// SubmitTrade executes an order for the current session.
func (s *Synchronizer) SubmitTrade(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	return s.executor.Execute(ctx, s.tokens.Get(), req)
}

// PendingTrade returns the order in flight, if any.
func (s *Synchronizer) PendingTrade() (domain.TradeRequest, bool) {
	return s.executor.Pending()
}

// Quote looks up the current price of symbol.
func (s *Synchronizer) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	return s.quotes.FetchPrice(ctx, s.tokens.Get(), symbol)
}

// Estimate previews req at the current quote. It is display-only.
func (s *Synchronizer) Estimate(ctx context.Context, req domain.TradeRequest) (domain.TradeEstimate, error) {
	req, err := req.Normalize()
	if err != nil {
		return domain.TradeEstimate{}, err
	}
	q, err := s.Quote(ctx, req.Symbol)
	if err != nil {
		return domain.TradeEstimate{}, err
	}
	snap := s.Snapshot()
	return domain.EstimateTrade(req, q.Price, snap.Profile.CashBalance, snap.Portfolio), nil
}

// NewQuoteField returns a debounced quote lookup bound to the current
// session. Each delivered quote is also published as QuoteUpdated.
func (s *Synchronizer) NewQuoteField(deliver func(QuoteResult)) *QuoteField {
	fetch := func(ctx context.Context, symbol string) (domain.Quote, error) {
		return s.Quote(ctx, symbol)
	}
	return NewQuoteField(fetch, s.opts.QuoteDebounce, func(r QuoteResult) {
		if r.Err == nil {
			_ = s.publisher.Publish(events.QuoteUpdatedEvent{BaseEvent: events.NewBase(events.QuoteUpdated), Quote: r.Quote})
		}
		deliver(r)
	}, s.logger)
}

// History returns executed transactions for the current session.
func (s *Synchronizer) History(ctx context.Context) ([]domain.Transaction, error) {
	token := s.tokens.Get()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	txs, err := s.api.History(ctx, token)
	if err != nil {
		return nil, fetchError("history", token, err, s.recon)
	}
	return txs, nil
}

// Market returns the public market snapshot. No session is needed.
func (s *Synchronizer) Market(ctx context.Context) ([]domain.MarketTick, error) {
	ticks, err := s.api.Market(ctx)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("market: %w: %v", domain.ErrTransientFetch, err)
	}
	return ticks, nil
}

// Trending returns the public top gainers and losers. No session is needed.
func (s *Synchronizer) Trending(ctx context.Context) ([]domain.Mover, error) {
	movers, err := s.api.Trending(ctx)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("trending: %w: %v", domain.ErrTransientFetch, err)
	}
	return movers, nil
}

// Snapshot returns a consistent copy of the synchronized state.
func (s *Synchronizer) Snapshot() Snapshot { return s.state.snapshot() }

// Profile returns the current profile; zero when anonymous.
func (s *Synchronizer) Profile() domain.Profile { return s.state.snapshot().Profile }

// Portfolio returns the current portfolio; empty when anonymous.
func (s *Synchronizer) Portfolio() domain.Portfolio { return s.state.snapshot().Portfolio }

// State returns whether a session is active.
func (s *Synchronizer) State() SessionState { return s.recon.State() }

// Subscribe registers h for events of type t.
func (s *Synchronizer) Subscribe(t events.EventType, h events.Handler) events.Subscription {
	return s.bus.Subscribe(t, h)
}

// Stats reports applied and discarded results and server invalidations.
func (s *Synchronizer) Stats() SyncStats {
	applied, discarded := s.state.stats()
	return SyncStats{Applied: applied, Discarded: discarded, Invalidations: s.recon.Invalidations()}
}

// SyncStats counts synchronizer outcomes.
type SyncStats struct {
	Applied       uint64
	Discarded     uint64
	Invalidations uint64
}
