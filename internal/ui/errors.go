// internal/ui/errors.go
package ui

import (
	"errors"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// DescribeError turns a synchronizer error into text for the user.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	if reason, ok := domain.RejectionReason(err); ok {
		return reason
	}

	switch {
	case errors.Is(err, domain.ErrTradeInProgress):
		return "a trade is already processing"
	case errors.Is(err, domain.ErrSessionInvalid):
		return "session expired, please log in again"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not logged in"
	case errors.Is(err, domain.ErrTradeFailed):
		return "server unreachable, the order outcome is unknown; check history before retrying"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return err.Error()
	case errors.Is(err, domain.ErrTransientFetch):
		return "server unreachable, showing last known data"
	}
	return err.Error()
}
