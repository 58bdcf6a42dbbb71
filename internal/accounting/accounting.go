// Package accounting holds the pure fill/fee/PnL/ROI arithmetic.
//
// Everything here runs on fixed-point decimals. ROI figures are aggregated
// downstream into trader leaderboards, so cumulative float drift across many
// small partial-fill legs is a correctness bug, not a style concern.
package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Summary aggregates the realized economics of a position.
type Summary struct {
	RealizedPnl decimal.Decimal // net of fees
	RoiPercent  decimal.Decimal // against committed margin
	FeesPaid    decimal.Decimal
}

// LegPnl is the gross profit of closing `fraction` of a unit position opened
// at `entry` and exited at `exit`. Leverage scales the result because the
// position notional is leverage times the committed margin.
func LegPnl(entry, exit, fraction decimal.Decimal, side types.Side, leverage decimal.Decimal) decimal.Decimal {
	return exit.Sub(entry).Mul(side.Direction()).Mul(fraction).Mul(leverage)
}

// Fee is the cost of transacting the given notional at the given rate.
func Fee(notional, rate decimal.Decimal) decimal.Decimal {
	return notional.Mul(rate)
}

// Aggregate folds the closed legs of a unit position into net PnL, ROI and
// total fees. The entry fee is charged once on the full position notional;
// each leg pays an exit fee on its own notional.
func Aggregate(legs []types.ClosedLeg, entry decimal.Decimal, side types.Side, leverage, feeRate decimal.Decimal) Summary {
	if entry.IsZero() {
		// Never filled: no notional ever transacted.
		return Summary{}
	}

	lev := leverage
	if !lev.IsPositive() {
		lev = decimal.NewFromInt(1)
	}

	fees := Fee(entry.Mul(lev), feeRate)
	gross := decimal.Zero
	for _, leg := range legs {
		gross = gross.Add(LegPnl(entry, leg.Price, leg.Fraction, side, lev))
		fees = fees.Add(Fee(leg.Price.Mul(leg.Fraction).Mul(lev), feeRate))
	}

	net := gross.Sub(fees)

	// Committed margin for a unit position is the entry price; leverage
	// scales exposure (already folded into PnL and fees), not margin.
	roi := net.Div(entry).Mul(hundred)

	return Summary{
		RealizedPnl: net,
		RoiPercent:  roi,
		FeesPaid:    fees,
	}
}

// FractionSum is the total of all closed-leg fractions. It never exceeds one
// for a well-behaved evaluation.
func FractionSum(legs []types.ClosedLeg) decimal.Decimal {
	sum := decimal.Zero
	for _, leg := range legs {
		sum = sum.Add(leg.Fraction)
	}
	return sum
}

// EqualSplit distributes a full position evenly across n take-profit levels.
// The final level absorbs the rounding remainder so the fractions sum to
// exactly one.
func EqualSplit(n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	each := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(n)), 8)
	out := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		out[i] = each
		running = running.Add(each)
	}
	out[n-1] = decimal.NewFromInt(1).Sub(running)

	return out
}
