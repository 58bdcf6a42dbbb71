package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/outcome"
	"github.com/sacraldj/ghost-sub001/internal/pricefeed"
	"github.com/sacraldj/ghost-sub001/internal/registry"
	"github.com/sacraldj/ghost-sub001/internal/storage"
	"github.com/sacraldj/ghost-sub001/pkg/cache"
	"github.com/sacraldj/ghost-sub001/pkg/config"
	"github.com/sacraldj/ghost-sub001/pkg/healthprobe"
	"github.com/sacraldj/ghost-sub001/pkg/httpserver"
	"github.com/shopspring/decimal"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	candleCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	source, err := setupSource(cfg, logger, candleCache, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup price source: %w", err)
	}

	store, err := setupStore(cfg, logger, opts)
	if err != nil {
		cancel()
		_ = source.Close()
		return nil, fmt.Errorf("setup store: %w", err)
	}

	reg := setupRegistry(cfg, logger, source, store)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, reg)

	return &App{
		cfg:           cfg,
		logger:        logger,
		opts:          opts,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		source:        source,
		store:         store,
		registry:      reg,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New("outcome-engine")
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.CacheNumCounters,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupSource(cfg *config.Config, logger *zap.Logger, candleCache cache.Cache, opts *Options) (pricefeed.Source, error) {
	binance, err := pricefeed.NewBinanceSource(&pricefeed.BinanceConfig{
		RESTURL:            cfg.BinanceRESTURL,
		WSURL:              cfg.BinanceWSURL,
		KlineInterval:      cfg.KlineInterval,
		CacheTTL:           cfg.KlineCacheTTL,
		HTTPTimeout:        cfg.HTTPFetchTimeout,
		WSDialTimeout:      cfg.WSDialTimeout,
		WSPongTimeout:      cfg.WSPongTimeout,
		WSPingInterval:     cfg.WSPingInterval,
		WSReconnectInitial: cfg.WSReconnectInitialDelay,
		WSReconnectMax:     cfg.WSReconnectMaxDelay,
		WSReconnectMult:    cfg.WSReconnectBackoffMult,
		WSFrameBufferSize:  cfg.WSFrameBufferSize,
		Cache:              candleCache,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	if opts.Replay {
		interval := opts.ReplayInterval
		if interval == "" {
			interval = cfg.KlineInterval
		}
		return pricefeed.NewReplaySource(binance, opts.ReplayStart, opts.ReplayEnd, interval, logger), nil
	}

	return binance, nil
}

func setupStore(cfg *config.Config, logger *zap.Logger, opts *Options) (storage.Store, error) {
	var inner storage.Store

	// Replay runs report to the console regardless of the configured backend
	if cfg.StorageMode == "postgres" && !opts.Replay {
		pgStore, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		inner = pgStore
	} else {
		inner = storage.NewConsoleStore(logger)
	}

	return storage.NewRetryWriter(inner, storage.RetryConfig{
		InitialBackoff: cfg.StoreRetryInitialBackoff,
		MaxBackoff:     cfg.StoreRetryMaxBackoff,
		BackoffMult:    cfg.StoreRetryBackoffMult,
		MaxAttempts:    cfg.StoreRetryMaxAttempts,
	}, logger), nil
}

func setupRegistry(cfg *config.Config, logger *zap.Logger, source pricefeed.Source, store storage.Store) *registry.Registry {
	sweep := cfg.SweepInterval
	// Replay relies on point timestamps; the wall-clock sweeper only matters live
	if sweep <= 0 {
		sweep = 30 * time.Second
	}

	return registry.New(&registry.Config{
		Source: source,
		Store:  store,
		Evaluator: outcome.Config{
			BreakEvenAfterTP1:     cfg.BreakEvenAfterTP1,
			FeeRate:               decimal.NewFromFloat(cfg.FeeRate),
			EntryFillTolerancePct: decimal.NewFromFloat(cfg.EntryFillTolerancePct),
			Logger:                logger,
		},
		SweepInterval:    sweep,
		DefaultHorizon:   cfg.TimeoutHorizon,
		DefaultTPWeights: tpWeights(cfg.TPWeights),
		Logger:           logger,
	})
}

func tpWeights(weights []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		out[i] = decimal.NewFromFloat(w)
	}
	return out
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	reg *registry.Registry,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Registry:      reg,
	})
}
