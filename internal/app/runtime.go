// internal/app/runtime.go

// Package app assembles the client runtime from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/config"
	"github.com/rovshanmuradov/tradedesk/internal/events"
	"github.com/rovshanmuradov/tradedesk/internal/export"
	"github.com/rovshanmuradov/tradedesk/internal/logger"
	"github.com/rovshanmuradov/tradedesk/internal/session"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
)

// Options selects how the runtime is built.
type Options struct {
	ConfigPath string
	// Debug forces debug logging regardless of configuration.
	Debug bool
	// Buffered sends logs to an in-memory buffer instead of stderr, for
	// programs that own the terminal.
	Buffered bool
	// APIURL overrides the configured server address when set.
	APIURL string
}

// Runtime holds the wired client components.
type Runtime struct {
	Config    *config.Config
	Logger    *zap.Logger
	LogBuffer *logger.LogBuffer
	Bus       *events.Bus
	Tokens    *session.TokenStore
	Client    *api.Client
	Sync      *trading.Synchronizer
	Exporter  *export.Exporter

	shutdown *ShutdownHandler
}

// New loads configuration and builds the runtime. The persisted session
// is not restored; call Restore for that.
func New(opts Options) (*Runtime, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	debug := cfg.DebugLogging || opts.Debug

	rt := &Runtime{Config: cfg}

	if opts.Buffered {
		buf, err := logger.NewLogBuffer(cfg.LogBufferSize, cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("create log buffer: %w", err)
		}
		log, err := logger.NewBuffered(debug, buf)
		if err != nil {
			_ = buf.Close()
			return nil, err
		}
		rt.LogBuffer = buf
		rt.Logger = log
	} else {
		rt.Logger = logger.NewPretty(debug)
	}
	rt.shutdown = NewShutdownHandler(rt.Logger.Named("shutdown"), 5*time.Second)

	if rt.LogBuffer != nil {
		stop := rt.LogBuffer.StartPeriodicFlush(time.Second)
		buf := rt.LogBuffer
		rt.shutdown.AddFunc("log_buffer", func() error {
			close(stop)
			return buf.Close()
		})
	}
	rt.shutdown.AddFunc("logger", func() error {
		_ = rt.Logger.Sync()
		return nil
	})

	rt.Bus = events.NewBus(rt.Logger, cfg.EventBufferSize)
	rt.shutdown.Add("event_bus", rt.Bus.Shutdown)

	rt.Tokens = session.NewTokenStore(session.NewFileBackend(cfg.TokenFile), rt.Logger)
	rt.Client = api.NewClient(cfg.APIURL, cfg.RequestTimeout, rt.Logger)
	rt.Sync = trading.NewSynchronizer(rt.Client, rt.Tokens, rt.Bus,
		trading.Options{QuoteDebounce: cfg.QuoteDebounce}, rt.Logger)
	rt.shutdown.AddFunc("synchronizer", func() error {
		rt.Sync.Close()
		return nil
	})
	rt.Exporter = export.NewExporter(rt.Logger)

	rt.Logger.Debug("Runtime ready",
		zap.String("api_url", cfg.APIURL),
		zap.String("token_file", cfg.TokenFile))
	return rt, nil
}

// Restore reinstates the persisted session, if any, and waits up to the
// request timeout for the first sync. It reports whether a session exists.
func (rt *Runtime) Restore(ctx context.Context) bool {
	if rt.Tokens.Restore() == "" {
		return false
	}
	waitCtx, cancel := context.WithTimeout(ctx, rt.Config.RequestTimeout)
	defer cancel()
	if err := rt.Sync.WaitIdle(waitCtx); err != nil {
		rt.Logger.Debug("Initial sync still running", zap.Error(err))
	}
	return rt.Sync.State() == trading.Authenticated
}

// Close shuts everything down in reverse construction order.
func (rt *Runtime) Close() error {
	return rt.shutdown.Shutdown(context.Background())
}
