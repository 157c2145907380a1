// internal/trading/profile.go
package trading

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/events"
)

// ProfileLoader fetches the profile and cash balance for a session.
type ProfileLoader struct {
	api       API
	state     *stateStore
	recon     *Reconciler
	publisher Publisher
	logger    *zap.Logger
}

// Sync fetches the profile for token and applies it if still current.
// An empty token yields the zero profile without a request. On failure
// the previously applied profile is kept.
func (l *ProfileLoader) Sync(ctx context.Context, token string) (domain.Profile, error) {
	if token == "" {
		return domain.Profile{}, nil
	}
	tk, ok := l.state.begin(targetProfile, token)
	if !ok {
		return domain.Profile{}, ErrSuperseded
	}

	p, err := l.api.Profile(ctx, token)
	if err != nil {
		err = fetchError("profile", token, err, l.recon)
		publishSyncFailure(l.publisher, l.logger, targetProfile, err)
		return domain.Profile{}, err
	}
	if !l.state.applyProfile(tk, p) {
		l.logger.Debug("Discarding superseded profile", zap.Uint64("epoch", tk.epoch), zap.Uint64("seq", tk.seq))
		return p, ErrSuperseded
	}

	l.logger.Debug("Profile synced", zap.String("cash", p.CashBalance.StringFixed(2)))
	return p, nil
}

func publishSyncFailure(pub Publisher, log *zap.Logger, t target, err error) {
	if isContextErr(err) {
		return
	}
	log.Warn("Sync failed", zap.String("target", t.String()), zap.Error(err))
	_ = pub.Publish(events.SyncFailedEvent{
		BaseEvent: events.NewBase(events.SyncFailed),
		Target:    t.String(),
		Error:     err,
	})
}
