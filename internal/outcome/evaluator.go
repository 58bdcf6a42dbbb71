// Package outcome implements the per-signal evaluation state machine. One
// evaluator consumes ordered price observations for its symbol and resolves
// the signal's lifecycle: entry fill, partial take-profits, break-even stop
// management, stop-loss, timeout. The same code path serves live ticks and
// historical candles.
package outcome

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/accounting"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// Config holds evaluator policy knobs.
type Config struct {
	BreakEvenAfterTP1 bool
	FeeRate           decimal.Decimal
	// EntryFillTolerancePct widens LIMIT entry matching in trade-print mode:
	// a print within this percentage of the limit counts as a touch. Candle
	// mode uses the bar's true range and ignores it.
	EntryFillTolerancePct decimal.Decimal
	Logger                *zap.Logger
}

// Evaluator advances a single signal's evaluation state. It is not
// goroutine-safe; the registry guarantees strictly ordered, single-threaded
// delivery per evaluator.
type Evaluator struct {
	signal     types.Signal
	cfg        Config
	logger     *zap.Logger
	state      types.EvaluationState
	deadline   time.Time
	nextTP     int
	milestones map[string]time.Duration
	result     *types.OutcomeResult
}

// NewEvaluator creates an evaluator for a validated, normalized signal
// (take-profit fractions populated, invariants checked at registration).
func NewEvaluator(signal types.Signal, cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		signal:   signal,
		cfg:      cfg,
		logger:   logger,
		deadline: signal.Deadline(),
		state: types.EvaluationState{
			Status:            types.StatusWaitingEntry,
			RemainingFraction: decimal.NewFromInt(1),
			EffectiveStop:     signal.StopLoss,
		},
		milestones: make(map[string]time.Duration),
	}
}

// Advance consumes the next ordered price observation and returns the
// lifecycle events it triggered, if any. Points at or before the checkpoint
// are ignored, which makes redelivery after a reconnect a no-op.
func (e *Evaluator) Advance(pt types.PricePoint) []types.LifecycleEvent {
	if e.result != nil {
		return nil
	}

	timer := prometheus.NewTimer(AdvanceDurationSeconds)
	defer timer.ObserveDuration()

	// The checkpoint is timestamp-only, so a distinct point sharing the last
	// seen timestamp is indistinguishable from a redelivery and is skipped
	// too. Candle feeds never produce equal timestamps; trade feeds can, at
	// the cost of losing the later print.
	if !e.state.LastSeen.IsZero() && !pt.Timestamp.After(e.state.LastSeen) {
		PointsSkippedTotal.Inc()
		return nil
	}
	e.state.LastSeen = pt.Timestamp

	// Wall-clock horizon is enforced by the registry sweeper in live mode;
	// in replay mode only point timestamps exist, so the deadline is checked
	// here too. Both paths resolve to the identical result.
	if pt.Timestamp.After(e.deadline) {
		if ev, ok := e.ForceTimeout(e.deadline); ok {
			return []types.LifecycleEvent{ev}
		}
		return nil
	}

	var events []types.LifecycleEvent

	if e.state.Status == types.StatusWaitingEntry {
		ev, filled := e.tryFill(pt)
		if !filled {
			return nil
		}
		events = append(events, ev)
	}

	e.updateExcursions(pt)

	events = append(events, e.progress(pt)...)

	return events
}

// tryFill checks the signal's entry condition against the observation.
func (e *Evaluator) tryFill(pt types.PricePoint) (types.LifecycleEvent, bool) {
	fill, ok := e.fillPrice(pt)
	if !ok {
		return types.LifecycleEvent{}, false
	}

	e.transition(types.StatusEntered)
	e.state.FilledEntryPrice = fill
	e.state.EnteredAt = pt.Timestamp
	e.milestones[string(types.EventEntered)] = pt.Timestamp.Sub(e.signal.CreatedAt)

	TransitionsTotal.WithLabelValues(string(types.EventEntered)).Inc()
	e.logger.Debug("signal-entered",
		zap.String("signal-id", e.signal.ID),
		zap.String("symbol", e.signal.Symbol),
		zap.String("fill-price", fill.String()))

	return types.LifecycleEvent{
		SignalID:  e.signal.ID,
		Symbol:    e.signal.Symbol,
		Type:      types.EventEntered,
		Price:     fill,
		Fraction:  decimal.NewFromInt(1),
		Timestamp: pt.Timestamp,
	}, true
}

func (e *Evaluator) fillPrice(pt types.PricePoint) (decimal.Decimal, bool) {
	switch e.signal.EntryType {
	case types.EntryMarket:
		return pt.First(), true

	case types.EntryLimit:
		limit := e.signal.EntryPrice
		if pt.Candle {
			if pt.Contains(limit) {
				return limit, true
			}
			return decimal.Decimal{}, false
		}
		tol := limit.Mul(e.cfg.EntryFillTolerancePct).Div(decimal.NewFromInt(100))
		if pt.Price.Sub(limit).Abs().LessThanOrEqual(tol) {
			return limit, true
		}
		return decimal.Decimal{}, false

	case types.EntryRange:
		lo := decimal.Max(pt.RangeLow(), e.signal.EntryLow)
		hi := decimal.Min(pt.RangeHigh(), e.signal.EntryHigh)
		if lo.GreaterThan(hi) {
			return decimal.Decimal{}, false
		}
		// Midpoint of the intersecting range.
		return lo.Add(hi).Div(decimal.NewFromInt(2)), true

	default:
		return decimal.Decimal{}, false
	}
}

// progress applies the fixed, conservative check order to an entered
// position: the effective stop first, then unfilled take-profit levels in
// ascending order only. When the stop and a TP fall inside the same bar, the
// stop wins. A stop moved to break-even mid-bar is not re-checked against
// that same bar; the bar already passed the stop gate with the stop that was
// in force when it arrived.
func (e *Evaluator) progress(pt types.PricePoint) []types.LifecycleEvent {
	if e.stopCrossed(pt) {
		return e.closeAtStop(pt)
	}

	var events []types.LifecycleEvent
	for e.nextTP < len(e.signal.TakeProfits) {
		tp := e.signal.TakeProfits[e.nextTP]
		if !e.tpCrossed(pt, tp.Price) {
			break
		}
		events = append(events, e.fillTP(pt, tp)...)
		if e.result != nil {
			break
		}
	}

	return events
}

func (e *Evaluator) stopCrossed(pt types.PricePoint) bool {
	if e.signal.Side == types.SideLong {
		return pt.RangeLow().LessThanOrEqual(e.state.EffectiveStop)
	}
	return pt.RangeHigh().GreaterThanOrEqual(e.state.EffectiveStop)
}

func (e *Evaluator) tpCrossed(pt types.PricePoint, level decimal.Decimal) bool {
	if e.signal.Side == types.SideLong {
		return pt.RangeHigh().GreaterThanOrEqual(level)
	}
	return pt.RangeLow().LessThanOrEqual(level)
}

// closeAtStop closes the whole remaining fraction at the effective stop.
func (e *Evaluator) closeAtStop(pt types.PricePoint) []types.LifecycleEvent {
	trigger := "SL"
	classification := types.OutcomeStopLoss
	if e.state.BreakEvenArmed {
		trigger = "BE"
		classification = types.OutcomeBreakEven
	}

	fraction := e.state.RemainingFraction
	e.state.ClosedLegs = append(e.state.ClosedLegs, types.ClosedLeg{
		Trigger:   trigger,
		Price:     e.state.EffectiveStop,
		Fraction:  fraction,
		Timestamp: pt.Timestamp,
	})
	e.state.RemainingFraction = decimal.Zero

	TransitionsTotal.WithLabelValues(string(types.EventSLHit)).Inc()

	slEvent := types.LifecycleEvent{
		SignalID:  e.signal.ID,
		Symbol:    e.signal.Symbol,
		Type:      types.EventSLHit,
		Price:     e.state.EffectiveStop,
		Fraction:  fraction,
		Timestamp: pt.Timestamp,
	}

	closed := e.finalize(classification, pt.Timestamp)

	return []types.LifecycleEvent{slEvent, closed}
}

// fillTP closes one take-profit level's fraction of the original position.
func (e *Evaluator) fillTP(pt types.PricePoint, tp types.TakeProfit) []types.LifecycleEvent {
	level := e.nextTP + 1
	fraction := decimal.Min(tp.Fraction, e.state.RemainingFraction)

	e.state.ClosedLegs = append(e.state.ClosedLegs, types.ClosedLeg{
		Trigger:   types.TPTrigger(level),
		Price:     tp.Price,
		Fraction:  fraction,
		Timestamp: pt.Timestamp,
	})
	e.state.RemainingFraction = e.state.RemainingFraction.Sub(fraction)
	e.milestones[types.TPTrigger(level)] = pt.Timestamp.Sub(e.signal.CreatedAt)
	e.nextTP++

	if level == 1 && e.cfg.BreakEvenAfterTP1 && !e.state.BreakEvenArmed {
		e.state.EffectiveStop = e.state.FilledEntryPrice
		e.state.BreakEvenArmed = true
		e.logger.Debug("break-even-armed",
			zap.String("signal-id", e.signal.ID),
			zap.String("effective-stop", e.state.EffectiveStop.String()))
	}

	TransitionsTotal.WithLabelValues(string(types.EventTPHit)).Inc()

	event := types.LifecycleEvent{
		SignalID:  e.signal.ID,
		Symbol:    e.signal.Symbol,
		Type:      types.EventTPHit,
		TPLevel:   level,
		Price:     tp.Price,
		Fraction:  fraction,
		Timestamp: pt.Timestamp,
	}

	if e.state.RemainingFraction.Sign() <= 0 {
		// Last fraction closed at a TP level.
		closed := e.finalize(types.OutcomeFullTP, pt.Timestamp)
		return []types.LifecycleEvent{event, closed}
	}

	e.transition(types.StatusPartiallyClosed)
	return []types.LifecycleEvent{event}
}

// ForceTimeout resolves the signal as timed out (or never filled) at the
// given instant. It is idempotent: once terminal, it reports nothing.
func (e *Evaluator) ForceTimeout(now time.Time) (types.LifecycleEvent, bool) {
	if e.result != nil {
		return types.LifecycleEvent{}, false
	}

	classification := types.OutcomeTimeout
	if e.state.Status == types.StatusWaitingEntry {
		classification = types.OutcomeNoFill
	} else {
		switch tps := e.nextTP; {
		case tps >= 2:
			classification = types.OutcomeTP2Partial
		case tps == 1:
			classification = types.OutcomeTP1Only
		}
	}

	return e.finalize(classification, now), true
}

// finalize moves the evaluation to CLOSED exactly once and freezes the
// terminal result.
func (e *Evaluator) finalize(classification types.Classification, at time.Time) types.LifecycleEvent {
	e.transition(types.StatusClosed)
	e.milestones[string(types.EventClosed)] = at.Sub(e.signal.CreatedAt)

	summary := accounting.Aggregate(
		e.state.ClosedLegs,
		e.state.FilledEntryPrice,
		e.signal.Side,
		e.signal.EffectiveLeverage(),
		e.cfg.FeeRate,
	)

	milestones := make(map[string]time.Duration, len(e.milestones))
	for k, v := range e.milestones {
		milestones[k] = v
	}

	e.result = &types.OutcomeResult{
		SignalID:       e.signal.ID,
		Symbol:         e.signal.Symbol,
		Classification: classification,
		RealizedPnl:    summary.RealizedPnl,
		RoiPercent:     summary.RoiPercent,
		FeesPaid:       summary.FeesPaid,
		Milestones:     milestones,
		MaxFavorable:   e.state.MaxFavorable,
		MaxAdverse:     e.state.MaxAdverse,
		ClosedLegs:     append([]types.ClosedLeg(nil), e.state.ClosedLegs...),
		ResolvedAt:     at,
	}

	OutcomesTotal.WithLabelValues(string(classification)).Inc()
	e.logger.Info("signal-resolved",
		zap.String("signal-id", e.signal.ID),
		zap.String("symbol", e.signal.Symbol),
		zap.String("classification", string(classification)),
		zap.String("realized-pnl", summary.RealizedPnl.String()),
		zap.String("roi-percent", summary.RoiPercent.StringFixed(4)))

	return types.LifecycleEvent{
		SignalID:       e.signal.ID,
		Symbol:         e.signal.Symbol,
		Type:           types.EventClosed,
		Classification: classification,
		Timestamp:      at,
	}
}

// transition moves the status forward; the lifecycle never goes backwards.
func (e *Evaluator) transition(next types.Status) {
	if e.state.Status.CanAdvanceTo(next) {
		e.state.Status = next
	}
}

// updateExcursions tracks the best and worst price excursions relative to
// the filled entry, regardless of whether a transition fired.
func (e *Evaluator) updateExcursions(pt types.PricePoint) {
	entry := e.state.FilledEntryPrice

	var favorable, adverse decimal.Decimal
	if e.signal.Side == types.SideLong {
		favorable = pt.RangeHigh().Sub(entry)
		adverse = entry.Sub(pt.RangeLow())
	} else {
		favorable = entry.Sub(pt.RangeLow())
		adverse = pt.RangeHigh().Sub(entry)
	}

	if favorable.GreaterThan(e.state.MaxFavorable) {
		e.state.MaxFavorable = favorable
	}
	if adverse.GreaterThan(e.state.MaxAdverse) {
		e.state.MaxAdverse = adverse
	}
}

// Done reports whether the evaluation reached a terminal state.
func (e *Evaluator) Done() bool {
	return e.result != nil
}

// Result returns the terminal outcome, or nil while the signal is open.
func (e *Evaluator) Result() *types.OutcomeResult {
	return e.result
}

// Signal returns the signal under evaluation.
func (e *Evaluator) Signal() *types.Signal {
	return &e.signal
}

// Deadline is the wall-clock instant after which the signal times out.
func (e *Evaluator) Deadline() time.Time {
	return e.deadline
}

// Expired reports whether the timeout horizon has elapsed at `now`.
func (e *Evaluator) Expired(now time.Time) bool {
	return now.After(e.deadline)
}

// State returns a copy of the current evaluation state.
func (e *Evaluator) State() types.EvaluationState {
	state := e.state
	state.ClosedLegs = append([]types.ClosedLeg(nil), e.state.ClosedLegs...)
	return state
}

// Snapshot builds the persistable view of the evaluation: intermediate state
// while open, state plus terminal result once resolved.
func (e *Evaluator) Snapshot(now time.Time) *types.OutcomeSnapshot {
	snap := &types.OutcomeSnapshot{
		SignalID:  e.signal.ID,
		Symbol:    e.signal.Symbol,
		Status:    e.state.Status,
		State:     e.State(),
		UpdatedAt: now,
	}
	if e.result != nil {
		snap.Classification = e.result.Classification
		snap.Result = e.result
	}
	return snap
}
