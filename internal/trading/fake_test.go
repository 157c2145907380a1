package trading

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/session"
)

// fakeAPI is a scriptable API. Unset hooks return benign defaults.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	login     func(ctx context.Context, id, pw string) (api.LoginResult, error)
	register  func(ctx context.Context, req api.RegisterRequest) (domain.Profile, error)
	logout    func(ctx context.Context, token string) error
	profile   func(ctx context.Context, token string) (domain.Profile, error)
	portfolio func(ctx context.Context, token string) (domain.Portfolio, error)
	quote     func(ctx context.Context, token, symbol string) (domain.Quote, error)
	trade     func(ctx context.Context, token string, req domain.TradeRequest) (domain.TradeResult, error)
	history   func(ctx context.Context, token string) ([]domain.Transaction, error)
	market    func(ctx context.Context) ([]domain.MarketTick, error)
	trending  func(ctx context.Context) ([]domain.Mover, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Login(ctx context.Context, id, pw string) (api.LoginResult, error) {
	f.count("login")
	if f.login != nil {
		return f.login(ctx, id, pw)
	}
	return api.LoginResult{Token: "tok-" + id, Profile: domain.Profile{Username: id}}, nil
}

func (f *fakeAPI) Register(ctx context.Context, req api.RegisterRequest) (domain.Profile, error) {
	f.count("register")
	if f.register != nil {
		return f.register(ctx, req)
	}
	return domain.Profile{Username: req.Username, DisplayName: req.FullNames, Email: req.Email}, nil
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.count("logout")
	if f.logout != nil {
		return f.logout(ctx, token)
	}
	return nil
}

func (f *fakeAPI) Profile(ctx context.Context, token string) (domain.Profile, error) {
	f.count("profile")
	if f.profile != nil {
		return f.profile(ctx, token)
	}
	return domain.Profile{Username: "alice", DisplayName: "Alice", CashBalance: dec("10000")}, nil
}

func (f *fakeAPI) Portfolio(ctx context.Context, token string) (domain.Portfolio, error) {
	f.count("portfolio")
	if f.portfolio != nil {
		return f.portfolio(ctx, token)
	}
	return domain.Portfolio{}, nil
}

func (f *fakeAPI) Quote(ctx context.Context, token, symbol string) (domain.Quote, error) {
	f.count("quote")
	if f.quote != nil {
		return f.quote(ctx, token, symbol)
	}
	return domain.Quote{Symbol: symbol, Name: symbol, Price: dec("100")}, nil
}

func (f *fakeAPI) Trade(ctx context.Context, token string, req domain.TradeRequest) (domain.TradeResult, error) {
	f.count("trade")
	if f.trade != nil {
		return f.trade(ctx, token, req)
	}
	return domain.TradeResult{AppliedQuantity: req.Quantity}, nil
}

func (f *fakeAPI) History(ctx context.Context, token string) ([]domain.Transaction, error) {
	f.count("history")
	if f.history != nil {
		return f.history(ctx, token)
	}
	return nil, nil
}

func (f *fakeAPI) Market(ctx context.Context) ([]domain.MarketTick, error) {
	f.count("market")
	if f.market != nil {
		return f.market(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) Trending(ctx context.Context) ([]domain.Mover, error) {
	f.count("trending")
	if f.trending != nil {
		return f.trending(ctx)
	}
	return nil, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func holdings(pairs ...interface{}) domain.Portfolio {
	var hs []domain.Holding
	for i := 0; i+1 < len(pairs); i += 2 {
		hs = append(hs, domain.Holding{
			Symbol:       pairs[i].(string),
			Shares:       int64(pairs[i+1].(int)),
			AverageCost:  dec("100"),
			CurrentPrice: dec("100"),
		})
	}
	return domain.NewPortfolio(hs)
}

// testingT is satisfied by *testing.T and *rapid.T.
type testingT interface {
	Helper()
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

type harness struct {
	api    *fakeAPI
	tokens *session.TokenStore
	bus    *events.Bus
	sync   *Synchronizer
}

func newHarness(t testingT, fake *fakeAPI) *harness {
	t.Helper()
	log := zap.NewNop()
	tokens := session.NewTokenStore(nil, log)
	bus := events.NewBus(log, 1024)
	s := NewSynchronizer(fake, tokens, bus, Options{}, log)
	h := &harness{api: fake, tokens: tokens, bus: bus, sync: s}
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(h.close)
	}
	return h
}

func (h *harness) close() {
	h.sync.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = h.bus.Shutdown(ctx)
}

func (h *harness) waitIdle(t testingT) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.sync.WaitIdle(ctx); err != nil {
		t.Fatalf("background sync did not finish: %v", err)
	}
}

// gate blocks callers until released, and reports arrivals.
type gate struct {
	arrived chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{arrived: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.arrived <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) awaitArrival(t testingT) {
	t.Helper()
	select {
	case <-g.arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("call never reached the server")
	}
}

func (g *gate) open() { close(g.release) }
