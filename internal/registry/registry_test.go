package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/outcome"
	"github.com/sacraldj/ghost-sub001/internal/pricefeed"
	"github.com/sacraldj/ghost-sub001/internal/storage"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

func newTestRegistry(t *testing.T) (*Registry, *pricefeed.MemorySource, *storage.MockStore) {
	t.Helper()

	source := pricefeed.NewMemorySource()
	store := storage.NewMockStore()

	reg := New(&Config{
		Source: source,
		Store:  store,
		Evaluator: outcome.Config{
			BreakEvenAfterTP1: true,
			FeeRate:           dec("0.00055"),
		},
		SweepInterval: time.Hour, // sweeps driven manually in tests
		Logger:        zap.NewNop(),
	})

	t.Cleanup(func() {
		reg.Close()
		source.Close()
	})

	return reg, source, store
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRegisterPersistsInitialSnapshot(t *testing.T) {
	reg, _, store := newTestRegistry(t)

	sig := validLong()
	_, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	snap, ok := store.Get(sig.ID)
	if !ok {
		t.Fatal("no snapshot persisted on registration")
	}
	if snap.Status != types.StatusWaitingEntry {
		t.Errorf("status %s, want WAITING_ENTRY", snap.Status)
	}
}

func TestRegisterRejectsInvalidSignal(t *testing.T) {
	reg, _, store := newTestRegistry(t)

	sig := validLong()
	sig.StopLoss = dec("120") // above a long entry

	_, err := reg.Register(context.Background(), sig)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if store.Upserts() != 0 {
		t.Error("rejected signal must not be persisted")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	first, err := reg.Register(context.Background(), validLong())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	second, err := reg.Register(context.Background(), validLong())
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}

	if first != second {
		t.Error("duplicate registration returned a different handle")
	}
}

func TestFullLifecycleThroughHub(t *testing.T) {
	reg, source, store := newTestRegistry(t)

	sig := validLong()
	handle, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	base := time.Now().UTC()
	source.Push(tradeAt(base, "100"))                    // entry
	source.Push(tradeAt(base.Add(time.Minute), "105"))   // TP1
	source.Push(tradeAt(base.Add(2*time.Minute), "110")) // TP2, full close

	select {
	case <-handle.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not resolve")
	}

	var got []string
	for ev := range handle.Events {
		got = append(got, ev.Name())
	}
	want := []string{"ENTERED", "TP1_HIT", "TP2_HIT", "CLOSED"}
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: %s, want %s", i, got[i], want[i])
		}
	}

	snap, ok := store.Get(sig.ID)
	if !ok {
		t.Fatal("no snapshot persisted")
	}
	if snap.Classification != types.OutcomeFullTP {
		t.Errorf("classification %s, want FULL_TP", snap.Classification)
	}
	if snap.Result == nil {
		t.Fatal("terminal snapshot missing result")
	}

	// Last signal on the symbol resolved, so the hub and subscription go away
	waitFor(t, "hub teardown", func() bool {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		return len(reg.hubs) == 0
	})
}

func TestSharedSubscriptionSurvivesFirstResolution(t *testing.T) {
	reg, source, store := newTestRegistry(t)

	quick := validLong()
	quick.ID = "quick"
	quick.TakeProfits = []types.TakeProfit{{Price: dec("105"), Fraction: dec("1")}}

	slow := validLong()
	slow.ID = "slow"
	slow.TakeProfits = []types.TakeProfit{{Price: dec("150"), Fraction: dec("1")}}

	quickHandle, err := reg.Register(context.Background(), quick)
	if err != nil {
		t.Fatalf("register quick: %v", err)
	}
	_, err = reg.Register(context.Background(), slow)
	if err != nil {
		t.Fatalf("register slow: %v", err)
	}

	base := time.Now().UTC()
	source.Push(tradeAt(base, "100"))
	source.Push(tradeAt(base.Add(time.Minute), "105"))

	select {
	case <-quickHandle.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("quick signal did not resolve")
	}

	// The slow signal still receives points on the shared subscription
	source.Push(tradeAt(base.Add(2*time.Minute), "106"))
	waitFor(t, "slow signal progress", func() bool {
		snap, ok := store.Get("slow")
		return ok && snap.Status == types.StatusEntered
	})
}

func TestEvictExpiredNoFill(t *testing.T) {
	reg, _, store := newTestRegistry(t)

	sig := validLong()
	sig.EntryType = types.EntryLimit
	sig.EntryPrice = dec("90")
	sig.StopLoss = dec("85")
	sig.TakeProfits = []types.TakeProfit{{Price: dec("95"), Fraction: dec("1")}}
	sig.TimeoutHorizon = time.Hour

	handle, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	evicted := reg.EvictExpired(time.Now().UTC().Add(2 * time.Hour))
	if evicted != 1 {
		t.Fatalf("evicted %d signals, want 1", evicted)
	}

	select {
	case <-handle.Done:
	case <-time.After(time.Second):
		t.Fatal("handle not closed after eviction")
	}

	snap, _ := store.Get(sig.ID)
	if snap.Classification != types.OutcomeNoFill {
		t.Errorf("classification %s, want NO_FILL", snap.Classification)
	}
}

func TestEvictExpiredSkipsUnexpired(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Register(context.Background(), validLong())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if evicted := reg.EvictExpired(time.Now().UTC()); evicted != 0 {
		t.Errorf("evicted %d signals, want 0", evicted)
	}
}

func TestCloseFlushesUnresolvedSignals(t *testing.T) {
	source := pricefeed.NewMemorySource()
	defer source.Close()
	store := storage.NewMockStore()

	reg := New(&Config{
		Source:    source,
		Store:     store,
		Evaluator: outcome.Config{BreakEvenAfterTP1: true},
		Logger:    zap.NewNop(),
	})

	sig := validLong()
	_, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	upsertsBefore := store.Upserts()
	err = reg.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if store.Upserts() <= upsertsBefore {
		t.Error("close did not flush unresolved signal state")
	}
}

func TestReplayWindowWithoutDataResolvesNoFill(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	history := pricefeed.NewMemorySource()
	defer history.Close()
	replay := pricefeed.NewReplaySource(history, base, base.Add(time.Hour), "1m", zap.NewNop())
	store := storage.NewMockStore()

	reg := New(&Config{
		Source:    replay,
		Store:     store,
		Evaluator: outcome.Config{BreakEvenAfterTP1: true},
		Logger:    zap.NewNop(),
	})
	defer reg.Close()

	sig := validLong()
	sig.TimeoutHorizon = 48 * time.Hour // deadline far beyond the window

	handle, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	select {
	case <-handle.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not resolve on an empty window")
	}

	snap, ok := store.Get(sig.ID)
	if !ok || snap.Result == nil {
		t.Fatal("terminal snapshot missing")
	}
	if snap.Classification != types.OutcomeNoFill {
		t.Errorf("classification %s, want NO_FILL", snap.Classification)
	}
}

func TestStreamEndAfterPartialCloseLabelsTimeout(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	last := base.Add(time.Minute)

	history := pricefeed.NewMemorySource()
	defer history.Close()
	history.Push(types.NewCandlePoint("BTCUSDT", last,
		dec("100"), dec("106"), dec("99"), dec("104"))) // entry + TP1, then nothing

	replay := pricefeed.NewReplaySource(history, base, base.Add(time.Hour), "1m", zap.NewNop())
	store := storage.NewMockStore()

	reg := New(&Config{
		Source:    replay,
		Store:     store,
		Evaluator: outcome.Config{BreakEvenAfterTP1: true},
		Logger:    zap.NewNop(),
	})
	defer reg.Close()

	handle, err := reg.Register(context.Background(), validLong())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	select {
	case <-handle.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not resolve when the stream ended")
	}

	snap, _ := store.Get("sig-1")
	if snap.Classification != types.OutcomeTP1Only {
		t.Errorf("classification %s, want TP1_ONLY", snap.Classification)
	}
	// Resolution is pinned to the last point, not the wall clock
	if !snap.Result.ResolvedAt.Equal(last) {
		t.Errorf("resolved at %v, want %v", snap.Result.ResolvedAt, last)
	}
}

// stallStore blocks upserts for one signal id until its gate is closed.
type stallStore struct {
	inner *storage.MockStore
	gate  chan struct{}

	mu    sync.Mutex
	stall string
}

func (s *stallStore) Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error {
	s.mu.Lock()
	stalled := s.stall == snap.SignalID
	s.mu.Unlock()

	if stalled {
		<-s.gate
	}
	return s.inner.Upsert(ctx, snap)
}

func (s *stallStore) Close() error { return s.inner.Close() }

func (s *stallStore) stallSignal(id string) {
	s.mu.Lock()
	s.stall = id
	s.mu.Unlock()
}

func TestSlowFlushStallsOnlyItsSymbol(t *testing.T) {
	source := pricefeed.NewMemorySource()
	defer source.Close()
	store := &stallStore{inner: storage.NewMockStore(), gate: make(chan struct{})}

	reg := New(&Config{
		Source:    source,
		Store:     store,
		Evaluator: outcome.Config{BreakEvenAfterTP1: true},
		Logger:    zap.NewNop(),
	})
	defer reg.Close()
	defer close(store.gate)

	btc := validLong()
	btc.ID = "btc"
	eth := validLong()
	eth.ID = "eth"
	eth.Symbol = "ETHUSDT"

	if _, err := reg.Register(context.Background(), btc); err != nil {
		t.Fatalf("register btc: %v", err)
	}
	ethHandle, err := reg.Register(context.Background(), eth)
	if err != nil {
		t.Fatalf("register eth: %v", err)
	}

	store.stallSignal("btc")

	base := time.Now().UTC()
	source.Push(types.NewTradePoint("BTCUSDT", base, dec("100"))) // flush blocks on the gate
	source.Push(types.NewTradePoint("ETHUSDT", base, dec("100")))

	select {
	case ev := <-ethHandle.Events:
		if ev.Name() != "ENTERED" {
			t.Errorf("event %s, want ENTERED", ev.Name())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("one symbol's store write stalled another symbol's hub")
	}
}

func tradeAt(ts time.Time, price string) types.PricePoint {
	return types.NewTradePoint("BTCUSDT", ts, dec(price))
}
