// internal/trading/quote.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// QuoteGateway is a stateless price lookup. It never touches Profile or
// Portfolio.
type QuoteGateway struct {
	api    API
	recon  *Reconciler
	logger *zap.Logger
}

// FetchPrice returns the current quote for symbol.
func (g *QuoteGateway) FetchPrice(ctx context.Context, token, symbol string) (domain.Quote, error) {
	symbol = domain.CanonicalSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, domain.NewValidationError("symbol", "symbol is required")
	}
	if token == "" {
		return domain.Quote{}, domain.ErrNotAuthenticated
	}

	q, err := g.api.Quote(ctx, token, symbol)
	switch {
	case err == nil:
		return q, nil
	case isContextErr(err):
		return domain.Quote{}, err
	case errors.Is(err, api.ErrUnauthorized):
		g.recon.Invalidate(token, err)
		return domain.Quote{}, fmt.Errorf("quote %s: %w", symbol, domain.ErrSessionInvalid)
	}
	if reason, ok := api.Reason(err); ok && !errors.Is(err, api.ErrTransport) {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, reason)
	}
	g.logger.Debug("Quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
	return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
}

// QuoteResult is delivered by a QuoteField for the latest input only.
type QuoteResult struct {
	Generation uint64
	Symbol     string
	Quote      domain.Quote
	Err        error
}

// FetchFunc looks up a quote for a canonical symbol.
type FetchFunc func(ctx context.Context, symbol string) (domain.Quote, error)

// QuoteField debounces free-text symbol input. Each Input supersedes the
// previous one: its pending request is cancelled and, should it still
// complete, its result is dropped. Only the latest input's result is
// delivered. deliver is called with the field's lock held and must not
// block or call back into the field.
type QuoteField struct {
	mu      sync.Mutex
	fetch   FetchFunc
	delay   time.Duration
	deliver func(QuoteResult)
	logger  *zap.Logger

	generation uint64
	cancel     context.CancelFunc
	closed     bool

	// Stats for monitoring
	delivered  uint64
	superseded uint64
}

// NewQuoteField creates a field that waits delay after the last input
// before fetching.
func NewQuoteField(fetch FetchFunc, delay time.Duration, deliver func(QuoteResult), logger *zap.Logger) *QuoteField {
	return &QuoteField{
		fetch:   fetch,
		delay:   delay,
		deliver: deliver,
		logger:  logger.Named("quote_field"),
	}
}

// Input records new field text and returns its generation. Empty text
// cancels any pending lookup without delivering anything.
func (f *QuoteField) Input(text string) uint64 {
	symbol := domain.CanonicalSymbol(text)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return f.generation
	}
	f.generation++
	gen := f.generation
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if symbol == "" {
		return gen
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.run(ctx, gen, symbol)
	return gen
}

func (f *QuoteField) run(ctx context.Context, gen uint64, symbol string) {
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			f.drop(gen, symbol)
			return
		case <-timer.C:
		}
	}

	q, err := f.fetch(ctx, symbol)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || gen != f.generation || isContextErr(err) {
		f.superseded++
		f.logger.Debug("Quote result superseded", zap.String("symbol", symbol), zap.Uint64("generation", gen))
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.delivered++
	f.deliver(QuoteResult{Generation: gen, Symbol: symbol, Quote: q, Err: err})
}

func (f *QuoteField) drop(gen uint64, symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.superseded++
	f.logger.Debug("Quote lookup cancelled", zap.String("symbol", symbol), zap.Uint64("generation", gen))
}

// Close cancels any pending lookup; nothing is delivered afterwards.
func (f *QuoteField) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// GetStats returns how many results were delivered and how many superseded.
func (f *QuoteField) GetStats() (delivered, superseded uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered, f.superseded
}
