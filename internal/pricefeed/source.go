package pricefeed

import (
	"context"
	"time"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// Source produces normalized price points for symbols. Implementations must
// deliver points for a symbol in non-decreasing timestamp order; evaluation
// of a signal against the same points always yields the same outcome, whether
// the points arrive live or from a historical fetch.
type Source interface {
	// SubscribeLive returns a channel of ordered price points for the symbol.
	// The channel is closed when the source shuts down or Unsubscribe is
	// called for the symbol.
	SubscribeLive(ctx context.Context, symbol string) (<-chan types.PricePoint, error)

	// Unsubscribe stops delivery for the symbol and closes its channel.
	Unsubscribe(symbol string)

	// HistoricalRange fetches ordered candle points for the symbol between
	// start and end at the given interval (e.g. "1m").
	HistoricalRange(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.PricePoint, error)

	// Close releases all source resources and closes open subscriptions.
	Close() error
}
