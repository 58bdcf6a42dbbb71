package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// RetryWriter wraps a Store with exponential-backoff retries. The evaluator
// keeps its state in memory until an upsert is acknowledged, so delivery is
// at-least-once; the underlying store's signal-id keying makes that safe.
type RetryWriter struct {
	inner  Store
	logger *zap.Logger
	cfg    RetryConfig
}

// RetryConfig holds retry tuning for persistence.
type RetryConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	MaxAttempts    int
}

// NewRetryWriter creates a retrying wrapper around a store.
func NewRetryWriter(inner Store, cfg RetryConfig, logger *zap.Logger) *RetryWriter {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffMult <= 1 {
		cfg.BackoffMult = 2.0
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	return &RetryWriter{
		inner:  inner,
		logger: logger,
		cfg:    cfg,
	}
}

// Upsert delivers the snapshot, retrying transient failures with backoff.
func (w *RetryWriter) Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error {
	backoff := w.cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		lastErr = w.inner.Upsert(ctx, snap)
		if lastErr == nil {
			if attempt > 1 {
				w.logger.Info("snapshot-stored-after-retry",
					zap.String("signal-id", snap.SignalID),
					zap.Int("attempts", attempt))
			}
			return nil
		}

		UpsertRetriesTotal.Inc()
		w.logger.Warn("snapshot-upsert-failed-retrying",
			zap.String("signal-id", snap.SignalID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * w.cfg.BackoffMult)
		if backoff > w.cfg.MaxBackoff {
			backoff = w.cfg.MaxBackoff
		}
	}

	UpsertFailuresTotal.Inc()

	return fmt.Errorf("upsert %s after %d attempts: %w", snap.SignalID, w.cfg.MaxAttempts, lastErr)
}

// Close closes the wrapped store.
func (w *RetryWriter) Close() error {
	return w.inner.Close()
}
