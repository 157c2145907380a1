package trading

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// After any sequence of trades the balance equals the last balance the
// server reported, or the synced balance when every order was refused.
func TestPropertyCashFollowsLastSuccessfulTrade(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		type outcome struct {
			ok      bool
			balance string
		}
		outcomes := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) outcome {
			return outcome{
				ok:      rapid.Bool().Draw(t, "ok"),
				balance: fmt.Sprintf("%d.%02d", rapid.IntRange(0, 50000).Draw(t, "units"), rapid.IntRange(0, 99).Draw(t, "cents")),
			}
		}), 1, 12).Draw(t, "outcomes")

		var mu sync.Mutex
		next := 0
		fake := newFakeAPI()
		fake.trade = func(context.Context, string, domain.TradeRequest) (domain.TradeResult, error) {
			mu.Lock()
			o := outcomes[next]
			next++
			mu.Unlock()
			if !o.ok {
				return domain.TradeResult{}, &api.StatusError{StatusCode: 400, Message: "insufficient funds"}
			}
			return domain.TradeResult{NewBalance: dec(o.balance), BalanceReported: true, AppliedQuantity: 1}, nil
		}
		h := newHarness(t, fake)
		defer h.close()
		h.tokens.Set("tok")
		h.waitIdle(t)

		want := dec("10000")
		for _, o := range outcomes {
			_, err := h.sync.SubmitTrade(ctx, domain.TradeRequest{Symbol: "AAPL", Quantity: 1, Side: domain.SideBuy})
			if o.ok {
				require.NoError(t, err)
				want = dec(o.balance)
			} else {
				require.ErrorIs(t, err, domain.ErrTradeRejected)
			}
			got := h.sync.Profile().CashBalance
			if !want.Equal(got) {
				t.Fatalf("cash %s, want %s", got, want)
			}
		}
	})
}

// Overlapping portfolio fetches complete in arbitrary order; the state
// always reflects the most recently issued fetch that has completed.
func TestPropertyOutOfOrderFetchesNeverRegress(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "fetches")
		indices := make([]int, n)
		gates := make([]*gate, n)
		for i := range gates {
			indices[i] = i
			gates[i] = newGate()
		}
		order := rapid.Permutation(indices).Draw(t, "completion order")

		var mu sync.Mutex
		call := 0
		fake := newFakeAPI()
		fake.portfolio = func(ctx context.Context, _ string) (domain.Portfolio, error) {
			mu.Lock()
			k := call
			call++
			mu.Unlock()
			if k == 0 {
				return domain.Portfolio{}, nil
			}
			if err := gates[k-1].wait(ctx); err != nil {
				return domain.Portfolio{}, err
			}
			return holdings("AAPL", k), nil
		}
		h := newHarness(t, fake)
		defer h.close()
		h.tokens.Set("tok")
		h.waitIdle(t)

		done := make([]chan struct{}, n)
		for i := 0; i < n; i++ {
			done[i] = make(chan struct{})
			go func(i int) {
				defer close(done[i])
				_, _ = h.sync.portfolio.Sync(ctx, "tok")
			}(i)
			gates[i].awaitArrival(t)
		}

		highest := 0
		for _, i := range order {
			gates[i].open()
			<-done[i]
			if i+1 > highest {
				highest = i + 1
			}
			if got := h.sync.Portfolio().SharesOf("AAPL"); got != int64(highest) {
				t.Fatalf("after completing fetch %d: shares %d, want %d", i+1, got, highest)
			}
		}
		if got := h.sync.Portfolio().SharesOf("AAPL"); got != int64(n) {
			t.Fatalf("final shares %d, want %d", got, n)
		}
	})
}

// Whatever is typed, only the last non-empty input is ever delivered.
func TestPropertyQuoteFieldLatestWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		inputs := rapid.SliceOfN(rapid.SampledFrom([]string{"", "a", "aa", "aap", "aapl", " msft ", "ibm"}), 1, 10).Draw(t, "inputs")

		release := make(chan struct{})
		fetch := func(ctx context.Context, symbol string) (domain.Quote, error) {
			select {
			case <-ctx.Done():
				return domain.Quote{}, ctx.Err()
			case <-release:
				return domain.Quote{Symbol: symbol, Price: dec("1")}, nil
			}
		}

		var mu sync.Mutex
		var got []QuoteResult
		field := NewQuoteField(fetch, 0, func(r QuoteResult) {
			mu.Lock()
			got = append(got, r)
			mu.Unlock()
		}, zap.NewNop())
		defer field.Close()

		var last uint64
		started := uint64(0)
		for _, in := range inputs {
			last = field.Input(in)
			if domain.CanonicalSymbol(in) != "" {
				started++
			}
		}
		close(release)

		deadline := time.Now().Add(2 * time.Second)
		for {
			delivered, superseded := field.GetStats()
			if delivered+superseded == started {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("lookups never settled: %d delivered, %d superseded of %d", delivered, superseded, started)
			}
			time.Sleep(time.Millisecond)
		}

		mu.Lock()
		defer mu.Unlock()
		final := domain.CanonicalSymbol(inputs[len(inputs)-1])
		if final == "" {
			assert.Empty(t, got)
			return
		}
		require.Len(t, got, 1)
		assert.Equal(t, last, got[0].Generation)
		assert.Equal(t, final, got[0].Symbol)
		assert.NoError(t, got[0].Err)
	})
}

// Results of fetches made under an earlier session never leak into the
// state of a later one, and after logout state stays empty.
func TestPropertyNoCrossSessionLeak(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ops := rapid.SliceOfN(rapid.Bool(), 1, 8).Draw(t, "login or logout")

		release := make(chan struct{})
		var inflight int64
		onWire := func() {
			atomic.AddInt64(&inflight, 1)
			<-release
		}
		fake := newFakeAPI()
		fake.profile = func(_ context.Context, token string) (domain.Profile, error) {
			onWire()
			defer atomic.AddInt64(&inflight, -1)
			return domain.Profile{Username: token, CashBalance: dec("1")}, nil
		}
		fake.portfolio = func(_ context.Context, token string) (domain.Portfolio, error) {
			onWire()
			defer atomic.AddInt64(&inflight, -1)
			return holdings(token, 1), nil
		}
		h := newHarness(t, fake)
		defer h.close()

		for i, login := range ops {
			if login {
				h.tokens.Set(fmt.Sprintf("TOK%d", i))
			} else {
				h.sync.Logout(ctx)
			}
		}
		close(release)
		h.waitIdle(t)

		deadline := time.Now().Add(2 * time.Second)
		for atomic.LoadInt64(&inflight) != 0 {
			if time.Now().After(deadline) {
				t.Fatal("fetches never finished")
			}
			time.Sleep(time.Millisecond)
		}

		token := h.tokens.Get()
		snap := h.sync.Snapshot()
		if token == "" {
			assert.False(t, snap.Authenticated)
			assert.True(t, snap.Profile.IsZero())
			assert.True(t, snap.Portfolio.IsEmpty())
			return
		}
		assert.Equal(t, token, snap.Profile.Username)
		assert.Equal(t, 1, snap.Portfolio.Len())
		assert.Equal(t, int64(1), snap.Portfolio.SharesOf(token))
	})
}
