package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sacraldj/ghost-sub001/internal/accounting"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// defaults are registry-level fallbacks applied to signals that omit the
// corresponding field.
type defaults struct {
	Horizon   time.Duration
	TPWeights []decimal.Decimal
}

// normalize validates a signal and fills derivable defaults: a generated id,
// CreatedAt, the timeout horizon and take-profit fractions. The signal is
// mutated in place.
func normalize(sig *types.Signal, now time.Time, dflt defaults) error {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = now
	}
	if sig.TimeoutHorizon <= 0 {
		if dflt.Horizon > 0 {
			sig.TimeoutHorizon = dflt.Horizon
		} else {
			sig.TimeoutHorizon = types.DefaultTimeoutHorizon
		}
	}

	if sig.Symbol == "" {
		return types.NewValidationError(sig.ID, "symbol", "must not be empty")
	}
	if !sig.Side.Valid() {
		return types.NewValidationError(sig.ID, "side", "unknown side %q", sig.Side)
	}
	if !sig.EntryType.Valid() {
		return types.NewValidationError(sig.ID, "entryType", "unknown entry type %q", sig.EntryType)
	}
	if sig.Leverage.IsNegative() {
		return types.NewValidationError(sig.ID, "leverage", "must not be negative")
	}

	err := validateEntry(sig)
	if err != nil {
		return err
	}

	err = validateStop(sig)
	if err != nil {
		return err
	}

	return normalizeTakeProfits(sig, dflt.TPWeights)
}

func validateEntry(sig *types.Signal) error {
	switch sig.EntryType {
	case types.EntryRange:
		if !sig.EntryLow.IsPositive() || !sig.EntryHigh.IsPositive() {
			return types.NewValidationError(sig.ID, "entryRange", "bounds must be positive")
		}
		if sig.EntryHigh.LessThan(sig.EntryLow) {
			return types.NewValidationError(sig.ID, "entryRange", "high %s below low %s",
				sig.EntryHigh, sig.EntryLow)
		}
	default:
		if !sig.EntryPrice.IsPositive() {
			return types.NewValidationError(sig.ID, "entryPrice", "must be positive")
		}
	}
	return nil
}

func validateStop(sig *types.Signal) error {
	if !sig.StopLoss.IsPositive() {
		return types.NewValidationError(sig.ID, "stopLoss", "must be positive")
	}

	entry := sig.ReferenceEntry()

	// The stop must sit on the losing side of the entry
	switch sig.Side {
	case types.SideLong:
		if sig.StopLoss.GreaterThanOrEqual(entry) {
			return types.NewValidationError(sig.ID, "stopLoss",
				"%s not below entry %s for a long", sig.StopLoss, entry)
		}
	case types.SideShort:
		if sig.StopLoss.LessThanOrEqual(entry) {
			return types.NewValidationError(sig.ID, "stopLoss",
				"%s not above entry %s for a short", sig.StopLoss, entry)
		}
	}
	return nil
}

func normalizeTakeProfits(sig *types.Signal, weights []decimal.Decimal) error {
	if len(sig.TakeProfits) == 0 {
		return types.NewValidationError(sig.ID, "takeProfits", "at least one target required")
	}

	entry := sig.ReferenceEntry()
	prev := entry

	for i, tp := range sig.TakeProfits {
		if !tp.Price.IsPositive() {
			return types.NewValidationError(sig.ID, "takeProfits",
				"target %d price must be positive", i+1)
		}

		// Targets must strictly improve in the trade direction
		var ok bool
		switch sig.Side {
		case types.SideLong:
			ok = tp.Price.GreaterThan(prev)
		case types.SideShort:
			ok = tp.Price.LessThan(prev)
		}
		if !ok {
			return types.NewValidationError(sig.ID, "takeProfits",
				"target %d (%s) does not improve on %s", i+1, tp.Price, prev)
		}
		prev = tp.Price

		if tp.Fraction.IsNegative() {
			return types.NewValidationError(sig.ID, "takeProfits",
				"target %d fraction must not be negative", i+1)
		}
	}

	// All-zero fractions mean the caller left sizing to us: configured
	// default weights when they match the target count, equal split otherwise
	allZero := true
	for _, tp := range sig.TakeProfits {
		if !tp.Fraction.IsZero() {
			allZero = false
			break
		}
	}
	if allZero {
		split := weights
		if len(split) != len(sig.TakeProfits) {
			split = accounting.EqualSplit(len(sig.TakeProfits))
		}
		for i := range sig.TakeProfits {
			sig.TakeProfits[i].Fraction = split[i]
		}
		return nil
	}

	sum := decimal.Zero
	for i, tp := range sig.TakeProfits {
		if tp.Fraction.IsZero() {
			return types.NewValidationError(sig.ID, "takeProfits",
				"target %d fraction missing while others are set", i+1)
		}
		sum = sum.Add(tp.Fraction)
	}
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return types.NewValidationError(sig.ID, "takeProfits",
			"fractions sum to %s, must not exceed 1", sum)
	}

	return nil
}
