package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// ConsoleStore implements Store by pretty-printing terminal outcomes to the
// console. Intermediate snapshots are logged at debug level only.
type ConsoleStore struct {
	logger *zap.Logger
}

// NewConsoleStore creates a new console store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	logger.Info("console-store-initialized")
	return &ConsoleStore{
		logger: logger,
	}
}

// Upsert prints the snapshot when it is terminal.
func (c *ConsoleStore) Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error {
	UpsertsTotal.WithLabelValues("console").Inc()

	if !snap.Final() {
		c.logger.Debug("snapshot-progress",
			zap.String("signal-id", snap.SignalID),
			zap.String("status", string(snap.Status)),
			zap.String("remaining", snap.State.RemainingFraction.String()))
		return nil
	}

	r := snap.Result

	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("SIGNAL RESOLVED: %s\n", r.Classification)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Signal:   %s\n", r.SignalID)
	fmt.Printf("Symbol:   %s\n", r.Symbol)
	fmt.Printf("Resolved: %s\n", r.ResolvedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("P&L\n")
	fmt.Printf("  Realized:      %s\n", r.RealizedPnl.StringFixed(8))
	fmt.Printf("  ROI:           %s%%\n", r.RoiPercent.StringFixed(4))
	fmt.Printf("  Fees:          %s\n", r.FeesPaid.StringFixed(8))
	fmt.Printf("  Max favorable: %s\n", r.MaxFavorable.StringFixed(8))
	fmt.Printf("  Max adverse:   %s\n", r.MaxAdverse.StringFixed(8))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("LEGS (%d)\n", len(r.ClosedLegs))
	for _, leg := range r.ClosedLegs {
		fmt.Printf("  %-4s %s x %s @ %s\n",
			leg.Trigger,
			leg.Fraction.StringFixed(4),
			leg.Price.StringFixed(8),
			leg.Timestamp.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStore) Close() error {
	c.logger.Info("closing-console-store")
	return nil
}
