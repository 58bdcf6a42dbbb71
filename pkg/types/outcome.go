package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an evaluation. It only ever moves forward
// through the declared order.
type Status string

const (
	StatusWaitingEntry    Status = "WAITING_ENTRY"
	StatusEntered         Status = "ENTERED"
	StatusPartiallyClosed Status = "PARTIALLY_CLOSED"
	StatusClosed          Status = "CLOSED"
)

// rank orders statuses for forward-only enforcement.
func (s Status) rank() int {
	switch s {
	case StatusWaitingEntry:
		return 0
	case StatusEntered:
		return 1
	case StatusPartiallyClosed:
		return 2
	case StatusClosed:
		return 3
	default:
		return -1
	}
}

// CanAdvanceTo reports whether moving from s to next respects forward-only
// ordering.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.rank() >= s.rank()
}

// Classification is the terminal label of a resolved signal.
type Classification string

const (
	OutcomeNoFill     Classification = "NO_FILL"
	OutcomeTimeout    Classification = "TIMEOUT"
	OutcomeStopLoss   Classification = "SL"
	OutcomeBreakEven  Classification = "BE_EXIT"
	OutcomeTP1Only    Classification = "TP1_ONLY"
	OutcomeTP2Partial Classification = "TP2_PARTIAL"
	OutcomeFullTP     Classification = "FULL_TP"
)

// ClosedLeg is one partial or full close of the position.
type ClosedLeg struct {
	Trigger   string          `json:"trigger"` // "TP1", "TP2", ..., "SL", "BE"
	Price     decimal.Decimal `json:"price"`
	Fraction  decimal.Decimal `json:"fraction"`
	Timestamp time.Time       `json:"timestamp"`
}

// TPTrigger names the trigger for the n-th (1-based) take-profit level.
func TPTrigger(level int) string {
	return fmt.Sprintf("TP%d", level)
}

// EvaluationState is the mutable per-signal state, owned exclusively by one
// evaluator.
type EvaluationState struct {
	Status            Status          `json:"status"`
	FilledEntryPrice  decimal.Decimal `json:"filled_entry_price"`
	RemainingFraction decimal.Decimal `json:"remaining_fraction"`
	EffectiveStop     decimal.Decimal `json:"effective_stop"`
	BreakEvenArmed    bool            `json:"break_even_armed"`
	ClosedLegs        []ClosedLeg     `json:"closed_legs"`
	MaxFavorable      decimal.Decimal `json:"max_favorable"` // price units from filled entry
	MaxAdverse        decimal.Decimal `json:"max_adverse"`   // price units from filled entry
	EnteredAt         time.Time       `json:"entered_at,omitempty"`
	LastSeen          time.Time       `json:"last_seen,omitempty"` // replay checkpoint
}

// OutcomeResult is the immutable terminal outcome of a signal. It is produced
// exactly once per signal.
type OutcomeResult struct {
	SignalID       string                   `json:"signal_id"`
	Symbol         string                   `json:"symbol"`
	Classification Classification           `json:"classification"`
	RealizedPnl    decimal.Decimal          `json:"realized_pnl"`
	RoiPercent     decimal.Decimal          `json:"roi_percent"`
	FeesPaid       decimal.Decimal          `json:"fees_paid"`
	Milestones     map[string]time.Duration `json:"milestones"` // from signal creation
	MaxFavorable   decimal.Decimal          `json:"max_favorable"`
	MaxAdverse     decimal.Decimal          `json:"max_adverse"`
	ClosedLegs     []ClosedLeg              `json:"closed_legs"`
	ResolvedAt     time.Time                `json:"resolved_at"`
}

// String returns a compact human-readable summary.
func (r *OutcomeResult) String() string {
	return fmt.Sprintf("Outcome[%s] %s %s pnl=%s roi=%s%% fees=%s legs=%d",
		r.SignalID, r.Symbol, r.Classification,
		r.RealizedPnl.StringFixed(8), r.RoiPercent.StringFixed(4),
		r.FeesPaid.StringFixed(8), len(r.ClosedLegs))
}

// OutcomeSnapshot is what gets persisted: intermediate evaluation state after
// every transition and the terminal result once resolved. Upserts are keyed
// by SignalID, so redelivery is harmless.
type OutcomeSnapshot struct {
	SignalID       string          `json:"signal_id"`
	Symbol         string          `json:"symbol"`
	Status         Status          `json:"status"`
	Classification Classification  `json:"classification,omitempty"` // empty until terminal
	State          EvaluationState `json:"state"`
	Result         *OutcomeResult  `json:"result,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Final reports whether the snapshot carries a terminal result.
func (s *OutcomeSnapshot) Final() bool {
	return s.Result != nil
}
