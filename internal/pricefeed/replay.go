package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// ReplaySource adapts a historical range into a live subscription: each
// SubscribeLive streams the fetched candles for [Start, End] in order and
// then closes the channel. Evaluation over a replayed range produces the
// same outcome as the same points delivered live.
type ReplaySource struct {
	inner    Source
	start    time.Time
	end      time.Time
	interval string
	logger   *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewReplaySource creates a replay source over the inner source's history.
func NewReplaySource(inner Source, start, end time.Time, interval string, logger *zap.Logger) *ReplaySource {
	return &ReplaySource{
		inner:    inner,
		start:    start,
		end:      end,
		interval: interval,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// SubscribeLive fetches the symbol's range and streams it on the returned
// channel, closing it when the range is exhausted.
func (r *ReplaySource) SubscribeLive(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	points, err := r.inner.HistoricalRange(ctx, symbol, r.start, r.end, r.interval)
	if err != nil {
		return nil, fmt.Errorf("fetch replay range for %s: %w", symbol, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if prev, ok := r.cancels[symbol]; ok {
		prev()
	}
	r.cancels[symbol] = cancel
	r.mu.Unlock()

	ch := make(chan types.PricePoint)
	ActiveSubscriptions.Inc()

	go func() {
		defer close(ch)
		defer ActiveSubscriptions.Dec()

		for _, pt := range points {
			select {
			case <-streamCtx.Done():
				return
			case ch <- pt:
				PointsDeliveredTotal.WithLabelValues(symbol).Inc()
			}
		}

		r.logger.Debug("replay-stream-complete",
			zap.String("symbol", symbol),
			zap.Int("points", len(points)))
	}()

	return ch, nil
}

// Unsubscribe stops the symbol's replay stream.
func (r *ReplaySource) Unsubscribe(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.cancels[symbol]; ok {
		cancel()
		delete(r.cancels, symbol)
	}
}

// HistoricalRange delegates to the inner source.
func (r *ReplaySource) HistoricalRange(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.PricePoint, error) {
	return r.inner.HistoricalRange(ctx, symbol, start, end, interval)
}

// Close stops all replay streams and closes the inner source.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	for symbol, cancel := range r.cancels {
		cancel()
		delete(r.cancels, symbol)
	}
	r.mu.Unlock()

	return r.inner.Close()
}
