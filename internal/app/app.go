package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/pricefeed"
	"github.com/sacraldj/ghost-sub001/internal/registry"
	"github.com/sacraldj/ghost-sub001/internal/storage"
	"github.com/sacraldj/ghost-sub001/pkg/config"
	"github.com/sacraldj/ghost-sub001/pkg/healthprobe"
	"github.com/sacraldj/ghost-sub001/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	opts          *Options
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	source        pricefeed.Source
	store         storage.Store
	registry      *registry.Registry
	handles       []*registry.Handle
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// SignalsFile is a JSON file of signals to register at startup.
	SignalsFile string

	// Replay evaluates the signals against historical candles for
	// [ReplayStart, ReplayEnd] and exits when all of them resolve.
	Replay         bool
	ReplayStart    time.Time
	ReplayEnd      time.Time
	ReplayInterval string
}
