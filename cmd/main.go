// Command bitdash runs the simulated Bitcoin trading dashboard core:
// a price tracker polling an external market data source and a wallet
// executing buy/sell/deposit operations, exposed over an HTTP API with
// a server-sent event stream for the UI.
//
// Usage:
//
//	bitdash --setup                 (interactive config wizard)
//	bitdash --config config.yaml
//	bitdash                         (built-in defaults, simulated data)
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitdash/bitdash/config"
	"github.com/bitdash/bitdash/internal/events"
	"github.com/bitdash/bitdash/internal/instrumentation"
	"github.com/bitdash/bitdash/internal/services/marketdata"
	"github.com/bitdash/bitdash/internal/services/tracker"
	walletsvc "github.com/bitdash/bitdash/internal/services/wallet"
	"github.com/bitdash/bitdash/internal/setup"
	"github.com/bitdash/bitdash/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the interactive setup wizard")
	flag.Parse()

	if *runSetup {
		path := *configPath
		if path == "" {
			path = "config.yaml"
		}
		if err := setup.RunTUI(path); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	client, err := newMarketDataClient(cfg)
	if err != nil {
		logger.Fatal("failed to create market data client", zap.Error(err))
	}

	bus := events.NewBus(cfg.EventBuffer)
	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)

	priceTracker, err := tracker.New(tracker.Config{
		AssetID:        cfg.AssetID,
		Currency:       cfg.Currency,
		BaseInterval:   cfg.UpdateInterval,
		InitialDelay:   cfg.InitialDelay,
		MaxBackoff:     cfg.MaxBackoffInterval,
		RequestTimeout: cfg.RequestTimeout,
		HistoryLimit:   cfg.HistoryLimit,
	}, client, bus.Price, logger.Named("tracker"), tracker.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("failed to create price tracker", zap.Error(err))
	}

	wallet, err := walletsvc.New(walletsvc.Config{
		InitialCash:     cfg.InitialCash,
		InitialBTC:      cfg.InitialBTC,
		MinTradeBTC:     cfg.MinTradeBTC,
		BuyMaxThreshold: cfg.BuyMaxThreshold,
	}, bus.Wallet, logger.Named("wallet"), walletsvc.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("failed to create wallet", zap.Error(err))
	}

	server := web.NewServer(cfg.ListenAddr, priceTracker, wallet, bus, cfg.CacheValidWindow, logger.Named("web"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return priceTracker.Run(ctx)
	})
	g.Go(func() error {
		if len(cfg.TLSDomains) > 0 {
			return server.StartWithAutoTLS(ctx, cfg.TLSDomains, cfg.TLSCacheDir)
		}
		return server.Start(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newMarketDataClient(cfg config.Config) (marketdata.Client, error) {
	switch cfg.DataSource {
	case config.SourceBinance:
		return marketdata.NewBinanceClient(binance.NewClient("", "")), nil
	case config.SourceBybit:
		return marketdata.NewBybitClient(bybit.NewClient()), nil
	case config.SourceSimulate:
		return marketdata.NewSimulateClient(decimal.NewFromInt(50000), time.Now().UnixNano()), nil
	default:
		return nil, errors.Errorf("unsupported data source %q", cfg.DataSource)
	}
}
