package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

func TestLoadSignals(t *testing.T) {
	payload := `[
		{
			"id": "sig-1",
			"symbol": "BTCUSDT",
			"side": "LONG",
			"entry_type": "MARKET",
			"entry_price": "50000",
			"take_profits": [
				{"price": "51000", "fraction": "0.5"},
				{"price": "52000", "fraction": "0.5"}
			],
			"stop_loss": "49000",
			"leverage": "10"
		},
		{
			"id": "sig-2",
			"symbol": "ETHUSDT",
			"side": "SHORT",
			"entry_type": "LIMIT",
			"entry_price": "3000",
			"take_profits": [{"price": "2900", "fraction": "1"}],
			"stop_loss": "3100"
		}
	]`

	path := filepath.Join(t.TempDir(), "signals.json")
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	signals, err := loadSignals(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}

	first := signals[0]
	if first.Side != types.SideLong || first.EntryType != types.EntryMarket {
		t.Errorf("unexpected first signal: %+v", first)
	}
	if !first.EntryPrice.Equal(decimal.RequireFromString("50000")) {
		t.Errorf("entry price %s, want 50000", first.EntryPrice)
	}
	if len(first.TakeProfits) != 2 {
		t.Errorf("take profits %d, want 2", len(first.TakeProfits))
	}
	if !first.Leverage.Equal(decimal.RequireFromString("10")) {
		t.Errorf("leverage %s, want 10", first.Leverage)
	}

	if signals[1].Side != types.SideShort {
		t.Errorf("second signal side %s, want SHORT", signals[1].Side)
	}
}

func TestLoadSignalsMissingFile(t *testing.T) {
	_, err := loadSignals(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadSignalsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := loadSignals(path)
	if err == nil {
		t.Fatal("expected error for malformed file")
	}
}
