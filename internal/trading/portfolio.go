// internal/trading/portfolio.go
package trading

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// PortfolioLoader fetches holdings for a session. It is idempotent and
// safe to run right after a trade.
type PortfolioLoader struct {
	api       API
	state     *stateStore
	recon     *Reconciler
	publisher Publisher
	logger    *zap.Logger
}

// Sync fetches the holdings for token and applies them if still current.
// Aggregates are always recomputed from the fetched holdings.
func (l *PortfolioLoader) Sync(ctx context.Context, token string) (domain.Portfolio, error) {
	if token == "" {
		return domain.Portfolio{}, nil
	}
	tk, ok := l.state.begin(targetPortfolio, token)
	if !ok {
		return domain.Portfolio{}, ErrSuperseded
	}

	p, err := l.api.Portfolio(ctx, token)
	if err != nil {
		err = fetchError("portfolio", token, err, l.recon)
		publishSyncFailure(l.publisher, l.logger, targetPortfolio, err)
		return domain.Portfolio{}, err
	}
	if !l.state.applyPortfolio(tk, p) {
		l.logger.Debug("Discarding superseded portfolio", zap.Uint64("epoch", tk.epoch), zap.Uint64("seq", tk.seq))
		return p, ErrSuperseded
	}

	l.logger.Debug("Portfolio synced",
		zap.Int("holdings", p.Len()),
		zap.String("stocks_value", p.TotalStocksValue().StringFixed(2)))
	return p, nil
}
