package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Direction returns +1 for LONG and -1 for SHORT as a decimal multiplier.
func (s Side) Direction() decimal.Decimal {
	if s == SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// EntryType describes how a signal's entry condition is satisfied.
type EntryType string

const (
	EntryMarket EntryType = "MARKET"
	EntryLimit  EntryType = "LIMIT"
	EntryRange  EntryType = "RANGE"
)

// Valid reports whether the entry type is one of the known values.
func (e EntryType) Valid() bool {
	return e == EntryMarket || e == EntryLimit || e == EntryRange
}

// TakeProfit is a single take-profit level. Fraction is the share of the
// ORIGINAL position closed when the level is reached.
type TakeProfit struct {
	Price    decimal.Decimal `json:"price"`
	Fraction decimal.Decimal `json:"fraction"`
}

// DefaultTimeoutHorizon is applied when a signal does not carry its own.
const DefaultTimeoutHorizon = 48 * time.Hour

// Signal is an immutable trading signal as produced by the upstream parser.
type Signal struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	EntryType      EntryType       `json:"entry_type"`
	EntryPrice     decimal.Decimal `json:"entry_price,omitempty"` // MARKET (informational) and LIMIT
	EntryLow       decimal.Decimal `json:"entry_low,omitempty"`   // RANGE only
	EntryHigh      decimal.Decimal `json:"entry_high,omitempty"`  // RANGE only
	TakeProfits    []TakeProfit    `json:"take_profits"`
	StopLoss       decimal.Decimal `json:"stop_loss"`
	Leverage       decimal.Decimal `json:"leverage,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	TimeoutHorizon time.Duration   `json:"timeout_horizon,omitempty"`
}

// Horizon returns the signal's timeout horizon, falling back to the default.
func (s *Signal) Horizon() time.Duration {
	if s.TimeoutHorizon > 0 {
		return s.TimeoutHorizon
	}
	return DefaultTimeoutHorizon
}

// Deadline is the wall-clock instant after which the signal times out.
func (s *Signal) Deadline() time.Time {
	return s.CreatedAt.Add(s.Horizon())
}

// EffectiveLeverage returns the signal's leverage, defaulting to 1x.
func (s *Signal) EffectiveLeverage() decimal.Decimal {
	if s.Leverage.IsPositive() {
		return s.Leverage
	}
	return decimal.NewFromInt(1)
}

// ReferenceEntry returns the price used for invariant checks: the limit or
// market price, or for RANGE entries the boundary nearest the stop.
func (s *Signal) ReferenceEntry() decimal.Decimal {
	if s.EntryType != EntryRange {
		return s.EntryPrice
	}
	if s.Side == SideLong {
		return s.EntryLow
	}
	return s.EntryHigh
}
