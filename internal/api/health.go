// internal/api/health.go
package api

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// WaitHealthy polls the health endpoint with exponential backoff until it
// answers or maxWait elapses. It is the only retried request.
func WaitHealthy(ctx context.Context, c *Client, maxWait time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	notify := func(err error, next time.Duration) {
		c.logger.Debug("Server not ready", zap.Error(err), zap.Duration("backoff", next))
	}

	operation := func() (struct{}, error) {
		return struct{}{}, c.Health(ctx)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(maxWait),
		backoff.WithNotify(notify))
	return err
}
