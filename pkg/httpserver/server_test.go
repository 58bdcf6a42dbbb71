package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/internal/outcome"
	"github.com/sacraldj/ghost-sub001/internal/pricefeed"
	"github.com/sacraldj/ghost-sub001/internal/registry"
	"github.com/sacraldj/ghost-sub001/internal/storage"
	"github.com/sacraldj/ghost-sub001/pkg/healthprobe"
	"github.com/sacraldj/ghost-sub001/pkg/types"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	source := pricefeed.NewMemorySource()
	reg := registry.New(&registry.Config{
		Source:    source,
		Store:     storage.NewMockStore(),
		Evaluator: outcome.Config{BreakEvenAfterTP1: true},
		Logger:    zap.NewNop(),
	})
	t.Cleanup(func() {
		reg.Close()
		source.Close()
	})
	return reg
}

func TestHandleActiveSignals(t *testing.T) {
	reg := newTestRegistry(t)

	sig := &types.Signal{
		Symbol:     "BTCUSDT",
		Side:       types.SideLong,
		EntryType:  types.EntryMarket,
		EntryPrice: decimal.RequireFromString("100"),
		TakeProfits: []types.TakeProfit{
			{Price: decimal.RequireFromString("110"), Fraction: decimal.RequireFromString("1")},
		},
		StopLoss: decimal.RequireFromString("95"),
	}
	_, err := reg.Register(context.Background(), sig)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	handler := NewSignalsHandler(reg, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleActive(rec, httptest.NewRequest(http.MethodGet, "/api/signals", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var resp signalsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count %d, want 1", resp.Count)
	}
	if resp.Signals[0].Status != types.StatusWaitingEntry {
		t.Errorf("status %s, want WAITING_ENTRY", resp.Signals[0].Status)
	}
}

func TestServerRoutes(t *testing.T) {
	hc := healthprobe.New("outcome-engine")
	hc.SetReady(true)

	srv := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		Registry:      newTestRegistry(t),
	})

	ts := httptest.NewServer(srv.server.Handler)
	defer ts.Close()

	for _, path := range []string{"/health", "/ready", "/metrics", "/api/signals"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}
}
