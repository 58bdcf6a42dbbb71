package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/outcome"
	"github.com/sacraldj/ghost-sub001/internal/pricefeed"
	"github.com/sacraldj/ghost-sub001/internal/storage"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

const handleEventBuffer = 64

// Handle is the caller's view of a tracked signal. Events delivers lifecycle
// transitions in order; Done is closed when the signal reaches a terminal
// classification.
type Handle struct {
	ID     string
	Events <-chan types.LifecycleEvent
	Done   <-chan struct{}
}

// Config holds registry configuration.
type Config struct {
	Source        pricefeed.Source
	Store         storage.Store
	Evaluator     outcome.Config
	SweepInterval time.Duration
	// DefaultHorizon applies to signals that carry no timeout horizon of
	// their own. Zero means the built-in default.
	DefaultHorizon time.Duration
	// DefaultTPWeights are applied to signals that omit take-profit
	// fractions, when the count matches. Empty means an equal split.
	DefaultTPWeights []decimal.Decimal
	Logger           *zap.Logger
}

// Registry tracks active signals, shares one price subscription per symbol
// among them, and flushes an outcome snapshot on every transition.
//
// mu guards only the hub and entry maps. Each hub carries its own lock for
// its watcher set and evaluators, so symbols advance independently and a
// slow store write stalls one symbol, not all of them.
type Registry struct {
	source        pricefeed.Source
	store         storage.Store
	evalCfg       outcome.Config
	sweepInterval time.Duration
	dflt          defaults
	logger        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	hubs    map[string]*symbolHub
	entries map[string]*entry // by signal id
	closed  bool
}

// entry pairs an evaluator with its handle channels.
type entry struct {
	eval   *outcome.Evaluator
	events chan types.LifecycleEvent
	done   chan struct{}
	handle *Handle
}

// symbolHub fans one symbol's ordered price stream out to that symbol's
// evaluators. A single goroutine per symbol preserves point order; mu guards
// the hub's watcher set and the evaluators behind it. Lock order is always
// Registry.mu before hub.mu.
type symbolHub struct {
	symbol string
	points <-chan types.PricePoint

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool // stream exhausted, hub goroutine gone
}

// New creates a registry. Call Run to start the deadline sweeper.
func New(cfg *Config) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		source:        cfg.Source,
		store:         cfg.Store,
		evalCfg:       cfg.Evaluator,
		sweepInterval: cfg.SweepInterval,
		dflt: defaults{
			Horizon:   cfg.DefaultHorizon,
			TPWeights: cfg.DefaultTPWeights,
		},
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		hubs:    make(map[string]*symbolHub),
		entries: make(map[string]*entry),
	}
}

// Register validates the signal and starts tracking it. Registering an id
// that is already tracked returns the existing handle, so redelivered
// signals are harmless.
func (r *Registry) Register(ctx context.Context, sig *types.Signal) (*Handle, error) {
	err := normalize(sig, time.Now().UTC(), r.dflt)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			ValidationFailuresTotal.WithLabelValues(verr.Field).Inc()
		}
		r.logger.Warn("signal-rejected",
			zap.String("signal-id", sig.ID),
			zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("registry closed")
	}

	if existing, ok := r.entries[sig.ID]; ok {
		r.logger.Debug("signal-already-tracked", zap.String("signal-id", sig.ID))
		return existing.handle, nil
	}

	ent := &entry{
		eval:   outcome.NewEvaluator(*sig, r.evalCfg),
		events: make(chan types.LifecycleEvent, handleEventBuffer),
		done:   make(chan struct{}),
	}
	ent.handle = &Handle{
		ID:     sig.ID,
		Events: ent.events,
		Done:   ent.done,
	}

	hub, err := r.attachToHub(ctx, sig.Symbol, ent)
	if err != nil {
		return nil, err
	}

	r.entries[sig.ID] = ent
	SignalsRegisteredTotal.Inc()
	ActiveSignals.Set(float64(len(r.entries)))

	// Persist the WAITING_ENTRY snapshot before any point arrives; the hub
	// lock keeps the write ordered against the stream.
	hub.mu.Lock()
	r.flush(ctx, ent)
	hub.mu.Unlock()

	r.logger.Info("signal-registered",
		zap.String("signal-id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("side", string(sig.Side)),
		zap.String("entry-type", string(sig.EntryType)),
		zap.Time("deadline", sig.Deadline()))

	return ent.handle, nil
}

// attachToHub adds the entry to the symbol's hub, creating the hub and its
// shared subscription on first use. The hub goroutine starts only after the
// first entry is attached, so a stream that ends immediately still resolves
// it. Caller holds r.mu.
func (r *Registry) attachToHub(ctx context.Context, symbol string, ent *entry) (*symbolHub, error) {
	if hub, ok := r.hubs[symbol]; ok {
		hub.mu.Lock()
		stopped := hub.stopped
		if !stopped {
			hub.entries[ent.handle.ID] = ent
		}
		hub.mu.Unlock()

		if !stopped {
			return hub, nil
		}

		// The stream ended while the hub still sat in the map; replace it
		delete(r.hubs, symbol)
		r.source.Unsubscribe(symbol)
	}

	points, err := r.source.SubscribeLive(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	hub := &symbolHub{
		symbol:  symbol,
		points:  points,
		entries: map[string]*entry{ent.handle.ID: ent},
	}
	r.hubs[symbol] = hub
	SymbolHubs.Set(float64(len(r.hubs)))

	r.wg.Add(1)
	go r.runHub(hub)

	r.logger.Info("symbol-hub-started", zap.String("symbol", symbol))

	return hub, nil
}

// runHub drains the symbol's point stream, dispatching each point to every
// evaluator tracking that symbol. A closed stream means no more data exists
// for the window, so whatever is still open gets force-resolved.
func (r *Registry) runHub(hub *symbolHub) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case pt, ok := <-hub.points:
			if !ok {
				r.drainHub(hub)
				return
			}
			r.dispatch(hub, pt)
		}
	}
}

// dispatch advances every evaluator on the hub with the point, flushing and
// finishing as transitions occur.
func (r *Registry) dispatch(hub *symbolHub, pt types.PricePoint) {
	hub.mu.Lock()
	var resolved []string
	for id, ent := range hub.entries {
		events := ent.eval.Advance(pt)
		if len(events) == 0 {
			continue
		}

		r.flush(r.ctx, ent)
		r.deliver(ent, events)

		if ent.eval.Done() {
			resolved = append(resolved, id)
		}
	}
	hub.mu.Unlock()

	for _, id := range resolved {
		r.finish(hub, id)
	}
}

// drainHub resolves everything the hub still tracks once its point stream is
// exhausted: signals that never filled classify NO_FILL, entered ones get
// the timeout labels. Resolution is pinned to the last point timestamp (or
// the deadline when no point ever arrived), so a replayed window yields the
// same result every run.
func (r *Registry) drainHub(hub *symbolHub) {
	hub.mu.Lock()
	hub.stopped = true
	var resolved []string
	for id, ent := range hub.entries {
		state := ent.eval.State()
		at := state.LastSeen
		if at.IsZero() {
			at = ent.eval.Deadline()
		}

		if state.Status == types.StatusWaitingEntry {
			r.logger.Warn("no-data-for-window",
				zap.String("signal-id", id),
				zap.String("symbol", hub.symbol))
		}

		ev, ok := ent.eval.ForceTimeout(at)
		if ok {
			r.flush(r.ctx, ent)
			r.deliver(ent, []types.LifecycleEvent{ev})
		}
		resolved = append(resolved, id)
	}
	hub.mu.Unlock()

	for _, id := range resolved {
		r.finish(hub, id)
	}
}

// deliver pushes events onto the handle channel without blocking the hub.
func (r *Registry) deliver(ent *entry, events []types.LifecycleEvent) {
	for _, ev := range events {
		select {
		case ent.events <- ev:
		default:
			r.logger.Warn("handle-event-dropped",
				zap.String("signal-id", ev.SignalID),
				zap.String("event", ev.Name()))
		}
	}
}

// flush persists the signal's current snapshot. Persistence failures are
// logged, not propagated; the evaluator keeps authoritative state in memory.
// Caller holds the owning hub's lock.
func (r *Registry) flush(ctx context.Context, ent *entry) {
	snap := ent.eval.Snapshot(time.Now().UTC())

	err := r.store.Upsert(ctx, snap)
	if err != nil {
		FlushFailuresTotal.Inc()
		r.logger.Error("snapshot-flush-failed",
			zap.String("signal-id", snap.SignalID),
			zap.String("status", string(snap.Status)),
			zap.Error(err))
	}
}

// finish removes a terminal entry, tearing down the hub and its subscription
// when the last signal on the symbol resolves.
func (r *Registry) finish(hub *symbolHub, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub.mu.Lock()
	ent, tracked := hub.entries[id]
	delete(hub.entries, id)
	empty := len(hub.entries) == 0
	hub.mu.Unlock()

	if !tracked {
		return
	}

	delete(r.entries, id)
	close(ent.events)
	close(ent.done)
	ActiveSignals.Set(float64(len(r.entries)))

	if empty {
		r.teardownHub(hub)
	}
}

// teardownHub drops the hub and releases its subscription. Caller holds r.mu.
// A replacement hub for the same symbol is left alone.
func (r *Registry) teardownHub(hub *symbolHub) {
	if r.hubs[hub.symbol] != hub {
		return
	}

	delete(r.hubs, hub.symbol)
	SymbolHubs.Set(float64(len(r.hubs)))
	r.source.Unsubscribe(hub.symbol)
	r.logger.Info("symbol-hub-stopped", zap.String("symbol", hub.symbol))
}

// EvictExpired force-resolves every signal whose deadline has passed. Live
// feeds can go quiet, so deadline enforcement cannot rely on incoming points
// alone.
func (r *Registry) EvictExpired(now time.Time) int {
	type expired struct {
		hub *symbolHub
		id  string
	}

	r.mu.Lock()
	var resolved []expired
	for id, ent := range r.entries {
		hub := r.hubs[ent.eval.Signal().Symbol]
		if hub == nil {
			continue
		}

		hub.mu.Lock()
		if !ent.eval.Expired(now) {
			hub.mu.Unlock()
			continue
		}
		ev, ok := ent.eval.ForceTimeout(now)
		if !ok {
			hub.mu.Unlock()
			continue
		}
		r.flush(r.ctx, ent)
		r.deliver(ent, []types.LifecycleEvent{ev})
		hub.mu.Unlock()

		TimeoutEvictionsTotal.Inc()
		resolved = append(resolved, expired{hub: hub, id: id})

		r.logger.Info("signal-expired",
			zap.String("signal-id", id),
			zap.String("classification", string(ev.Classification)))
	}
	r.mu.Unlock()

	for _, ex := range resolved {
		r.finish(ex.hub, ex.id)
	}

	return len(resolved)
}

// Run drives the deadline sweeper until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	r.logger.Info("registry-sweeper-started",
		zap.Duration("interval", r.sweepInterval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			evicted := r.EvictExpired(now.UTC())
			if evicted > 0 {
				r.logger.Info("deadline-sweep-complete", zap.Int("evicted", evicted))
			}
		}
	}
}

// Active returns snapshots of all signals still being evaluated.
func (r *Registry) Active() []*types.OutcomeSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	out := make([]*types.OutcomeSnapshot, 0, len(r.entries))
	for _, ent := range r.entries {
		hub := r.hubs[ent.eval.Signal().Symbol]
		if hub == nil {
			continue
		}
		hub.mu.Lock()
		out = append(out, ent.eval.Snapshot(now))
		hub.mu.Unlock()
	}
	return out
}

// Close stops all hubs, flushes the snapshots of unresolved signals and
// releases subscriptions.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ent := range r.entries {
		// Unresolved state survives restarts through the store
		r.flush(context.Background(), ent)
		close(ent.events)
		close(ent.done)
		delete(r.entries, id)
	}

	for symbol := range r.hubs {
		delete(r.hubs, symbol)
		r.source.Unsubscribe(symbol)
	}

	ActiveSignals.Set(0)
	SymbolHubs.Set(0)

	r.logger.Info("registry-closed")
	return nil
}
