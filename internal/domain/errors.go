// internal/domain/errors.go
package domain

import "errors"

var (
	// ErrSessionInvalid means the server rejected the current credentials.
	// It is the only error that resets the session.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrTransientFetch means a read could not reach the server; prior state is kept.
	ErrTransientFetch = errors.New("transient fetch failure")
	// ErrTradeRejected is the kind of RejectedError returned for refused orders.
	ErrTradeRejected = errors.New("trade rejected")
	// ErrTradeInProgress is returned when an order is submitted while another is pending.
	ErrTradeInProgress = errors.New("already processing")
	// ErrTradeFailed means the order outcome is unknown because the server was unreachable.
	ErrTradeFailed = errors.New("trade failed")
	// ErrQuoteUnavailable covers unknown symbols and unreachable quote service.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrNotAuthenticated is returned for operations that need a session while anonymous.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLoginRejected is the kind of RejectedError for refused credentials.
	ErrLoginRejected = errors.New("login rejected")
	// ErrRegistrationRejected is the kind of RejectedError for refused sign-ups.
	ErrRegistrationRejected = errors.New("registration rejected")
	// ErrInvalidInput is wrapped by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError reports input that failed a local precondition. Nothing
// was sent to the server.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RejectedError carries a server refusal. Reason is the server's text,
// verbatim; Kind classifies it for errors.Is.
type RejectedError struct {
	Kind   error
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

func (e *RejectedError) Unwrap() error { return e.Kind }

// Reject builds a RejectedError of the given kind.
func Reject(kind error, reason string) *RejectedError {
	return &RejectedError{Kind: kind, Reason: reason}
}

// RejectionReason extracts the server reason from err, if any.
func RejectionReason(err error) (string, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
