package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Bool("replay", a.opts.Replay),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	if a.opts.SignalsFile != "" {
		signals, err := loadSignals(a.opts.SignalsFile)
		if err != nil {
			_ = a.Shutdown()
			return err
		}
		err = a.registerSignals(signals)
		if err != nil {
			_ = a.Shutdown()
			return err
		}
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Int("signals", len(a.handles)))

	if a.opts.Replay {
		return a.waitForResolution()
	}

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if a.registry == nil {
		return fmt.Errorf("registry not initialized")
	}

	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	// Start the deadline sweeper
	a.wg.Add(1)
	go a.runSweeper()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runSweeper() {
	defer a.wg.Done()
	a.registry.Run(a.ctx)
}

// waitForResolution blocks until every registered signal reaches a terminal
// classification, then shuts down. Used in replay mode.
func (a *App) waitForResolution() error {
	a.logger.Info("replay-waiting-for-resolution", zap.Int("signals", len(a.handles)))

	for _, handle := range a.handles {
		select {
		case <-handle.Done:
		case <-a.ctx.Done():
			return a.Shutdown()
		}
	}

	a.logger.Info("replay-complete", zap.Int("signals", len(a.handles)))

	return a.Shutdown()
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
