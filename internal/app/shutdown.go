// internal/app/shutdown.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CloseFunc is one shutdown step.
type CloseFunc func(ctx context.Context) error

type namedCloser struct {
	name string
	fn   CloseFunc
}

// ShutdownHandler closes registered services in reverse registration order.
type ShutdownHandler struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	services []namedCloser
	done     bool
}

// NewShutdownHandler creates a handler whose whole run is bounded by timeout.
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShutdownHandler{logger: logger, timeout: timeout}
}

// Add registers a service for shutdown.
func (sh *ShutdownHandler) Add(name string, fn CloseFunc) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.services = append(sh.services, namedCloser{name: name, fn: fn})
}

// AddFunc registers a shutdown step that needs no context.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, func(context.Context) error { return fn() })
}

// Shutdown runs every step once, newest first, and joins their errors.
// Later calls are no-ops.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	if sh.done {
		sh.mu.Unlock()
		return nil
	}
	sh.done = true
	services := make([]namedCloser, len(sh.services))
	copy(services, sh.services)
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		sh.logger.Debug("Shutting down service", zap.String("service", svc.name))
		if err := svc.fn(ctx); err != nil {
			sh.logger.Warn("Failed to shutdown service", zap.String("service", svc.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
		}
	}
	return errors.Join(errs...)
}
