// internal/trading/errors.go
package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// ErrSuperseded is returned by a sync whose result was discarded because a
// newer request or a different session had already taken its place.
var ErrSuperseded = errors.New("result superseded")

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fetchError maps a failed read to the error taxonomy and triggers the
// session reset on auth failure.
func fetchError(what, token string, err error, recon *Reconciler) error {
	switch {
	case isContextErr(err):
		return fmt.Errorf("%s: %w", what, err)
	case errors.Is(err, api.ErrUnauthorized):
		recon.Invalidate(token, err)
		return fmt.Errorf("%s: %w", what, domain.ErrSessionInvalid)
	default:
		return fmt.Errorf("%s: %w: %v", what, domain.ErrTransientFetch, err)
	}
}
