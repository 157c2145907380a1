// cmd/tradedesk-sim/main.go

// Command tradedesk-sim serves an in-memory trading API for development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/api"
	"github.com/rovshanmuradov/tradedesk/internal/config"
	"github.com/rovshanmuradov/tradedesk/internal/logger"
	"github.com/rovshanmuradov/tradedesk/internal/simulator"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	port := flag.Int("port", 0, "Listen port (overrides simulator.port)")
	wait := flag.Duration("wait", 0, "Only wait up to this long for the server at api_url to become healthy")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewPretty(*debug || cfg.DebugLogging)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *wait > 0 {
		client := api.NewClient(cfg.APIURL, cfg.RequestTimeout, appLogger)
		if err := api.WaitHealthy(ctx, client, *wait); err != nil {
			appLogger.Error("Server did not become healthy", zap.String("api_url", cfg.APIURL), zap.Error(err))
			os.Exit(1)
		}
		appLogger.Info("Server is healthy", zap.String("api_url", cfg.APIURL))
		return
	}

	// Amounts go on the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if *port > 0 {
		cfg.Simulator.Port = *port
	}

	appLogger.Info("Starting trading simulator",
		zap.Int("port", cfg.Simulator.Port),
		zap.String("starting_cash", cfg.Simulator.StartingCash),
		zap.Duration("token_ttl", cfg.Simulator.TokenTTL),
		zap.Int("symbols", len(cfg.Simulator.Prices)))

	start := time.Now()
	if err := simulator.NewServer(cfg.Simulator, appLogger).Run(ctx); err != nil {
		appLogger.Error("Simulator stopped with error", zap.Error(err))
		_ = appLogger.Sync()
		os.Exit(1)
	}
	appLogger.Info("Simulator stopped", zap.Duration("uptime", time.Since(start)))
}
