// internal/trading/reconciler.go
package trading

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/session"
)

// Session change reasons carried by events.SessionChangedEvent.
const (
	ReasonLogin       = "login"
	ReasonRestore     = "restore"
	ReasonLogout      = "logout"
	ReasonInvalidated = "invalidated"
)

// SessionState is the reconciler's two-state machine.
type SessionState int

const (
	Anonymous SessionState = iota
	Authenticated
)

func (s SessionState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

const serverLogoutTimeout = 5 * time.Second

// Reconciler moves the session between Authenticated and Anonymous. Only
// an explicit logout or a server auth failure for the current token ends
// a session; nothing re-authenticates automatically.
type Reconciler struct {
	tokens *session.TokenStore
	api    API
	logger *zap.Logger

	mu     sync.Mutex
	reason atomic.Value // string; read by the token listener during a clear

	invalidations uint64
}

// NewReconciler creates a reconciler over tokens.
func NewReconciler(tokens *session.TokenStore, client API, logger *zap.Logger) *Reconciler {
	r := &Reconciler{
		tokens: tokens,
		api:    client,
		logger: logger.Named("reconciler"),
	}
	r.reason.Store("")
	return r
}

// State returns the current session state.
func (r *Reconciler) State() SessionState {
	if r.tokens.Get() == "" {
		return Anonymous
	}
	return Authenticated
}

// Invalidate ends the session because the server rejected token. A stale
// token, one that is no longer current, is ignored. It reports whether the
// session was reset.
func (r *Reconciler) Invalidate(token string, cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reason.Store(ReasonInvalidated)
	defer r.reason.Store("")

	if !r.tokens.ClearIf(token) {
		r.logger.Debug("Ignoring invalidation for stale session", zap.Error(cause))
		return false
	}
	atomic.AddUint64(&r.invalidations, 1)
	r.logger.Warn("Session invalidated by server", zap.Error(cause))
	return true
}

// Logout ends the session locally and then tells the server, best effort.
// The local logout always completes; a server failure is only logged.
func (r *Reconciler) Logout(ctx context.Context) {
	if token := r.tokens.Get(); token != "" {
		r.end(ctx, token)
	}
}

// end logs out of the session identified by token. A session installed
// after token was read is left alone; token is still revoked on the server.
func (r *Reconciler) end(ctx context.Context, token string) {
	r.mu.Lock()
	r.reason.Store(ReasonLogout)
	cleared := r.tokens.ClearIf(token)
	r.reason.Store("")
	r.mu.Unlock()

	if cleared {
		r.logger.Info("Logged out")
	} else {
		r.logger.Debug("Session replaced before logout, keeping it")
	}

	ctx, cancel := context.WithTimeout(ctx, serverLogoutTimeout)
	defer cancel()
	if err := r.api.Logout(ctx, token); err != nil {
		r.logger.Debug("Server logout failed", zap.Error(err))
	}
}

// Invalidations returns how many sessions the server has ended.
func (r *Reconciler) Invalidations() uint64 {
	return atomic.LoadUint64(&r.invalidations)
}

// reasonFor labels a token change for listeners.
func (r *Reconciler) reasonFor(c session.Change) string {
	switch {
	case c.Restored:
		return ReasonRestore
	case c.Current != "":
		return ReasonLogin
	}
	if reason, _ := r.reason.Load().(string); reason != "" {
		return reason
	}
	return ReasonLogout
}
