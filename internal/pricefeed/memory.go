package pricefeed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// MemorySource is an in-memory Source for tests and fixtures. Points pushed
// with Push are delivered to live subscribers and retained for
// HistoricalRange.
type MemorySource struct {
	mu     sync.Mutex
	points map[string][]types.PricePoint
	subs   map[string]chan types.PricePoint
	closed bool
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		points: make(map[string][]types.PricePoint),
		subs:   make(map[string]chan types.PricePoint),
	}
}

// Push records a point and delivers it to the symbol's live subscriber.
func (s *MemorySource) Push(pt types.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.points[pt.Symbol] = append(s.points[pt.Symbol], pt)

	if ch, ok := s.subs[pt.Symbol]; ok {
		select {
		case ch <- pt:
			PointsDeliveredTotal.WithLabelValues(pt.Symbol).Inc()
		default:
			PointsDroppedTotal.WithLabelValues(pt.Symbol).Inc()
		}
	}
}

// SubscribeLive returns a channel receiving future pushes for the symbol.
func (s *MemorySource) SubscribeLive(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[symbol]; ok {
		return ch, nil
	}

	ch := make(chan types.PricePoint, 256)
	s.subs[symbol] = ch
	ActiveSubscriptions.Inc()
	return ch, nil
}

// Unsubscribe closes the symbol's channel.
func (s *MemorySource) Unsubscribe(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[symbol]; ok {
		delete(s.subs, symbol)
		close(ch)
		ActiveSubscriptions.Dec()
	}
}

// HistoricalRange returns retained points for the symbol within [start, end],
// in timestamp order.
func (s *MemorySource) HistoricalRange(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.PricePoint
	for _, pt := range s.points[symbol] {
		if pt.Timestamp.Before(start) || pt.Timestamp.After(end) {
			continue
		}
		out = append(out, pt)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out, nil
}

// Close closes all open subscriptions.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for symbol, ch := range s.subs {
		delete(s.subs, symbol)
		close(ch)
		ActiveSubscriptions.Dec()
	}

	return nil
}
