// internal/simulator/server.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/config"
)

// Server runs the simulator over HTTP.
type Server struct {
	cfg    config.SimulatorConfig
	ledger *Ledger
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds a server with a fresh ledger from cfg.
func NewServer(cfg config.SimulatorConfig, logger *zap.Logger) *Server {
	log := logger.Named("simulator")
	ledger := NewLedger(OptionsFromConfig(cfg))
	return &Server{
		cfg:    cfg,
		ledger: ledger,
		logger: log,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(ledger, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Ledger returns the server's ledger.
func (s *Server) Ledger() *Ledger { return s.ledger }

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Simulator listening", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultShutdownTimeoutMs) * time.Millisecond
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("Shutting down simulator")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
