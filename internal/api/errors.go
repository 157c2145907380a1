// internal/api/errors.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrUnauthorized means the server refused the bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport covers unreachable servers, 5xx responses and unreadable bodies.
	ErrTransport = errors.New("transport failure")
)

// StatusError is a 4xx refusal carrying the server's reason.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Reason returns the server's reason for err if err is a StatusError.
func Reason(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error(), true
	}
	return "", false
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusUnprocessableEntity
}

// classify turns a resty outcome into nil or one of ErrUnauthorized,
// ErrTransport, *StatusError or a context error. authenticated marks calls
// that carried a bearer token; on those an auth status means the session
// is gone.
func classify(resp *resty.Response, err error, authenticated bool) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	code := resp.StatusCode()
	switch {
	case code < 400:
		return nil
	case authenticated && isAuthStatus(code):
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp))
	case code >= 500:
		return fmt.Errorf("%w: %w", ErrTransport, &StatusError{StatusCode: code, Message: errorMessage(resp)})
	default:
		return &StatusError{StatusCode: code, Message: errorMessage(resp)}
	}
}

func errorMessage(resp *resty.Response) string {
	var body ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return body.Error
	}
	text := strings.TrimSpace(resp.String())
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(resp.StatusCode())
	}
	return text
}
