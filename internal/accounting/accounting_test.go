package accounting

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLegPnl(t *testing.T) {
	tests := []struct {
		name     string
		entry    string
		exit     string
		fraction string
		side     types.Side
		leverage string
		want     string
	}{
		{"long-profit", "100", "110", "1", types.SideLong, "1", "10"},
		{"long-loss", "100", "95", "1", types.SideLong, "1", "-5"},
		{"short-profit", "100", "90", "1", types.SideShort, "1", "10"},
		{"short-loss", "100", "105", "1", types.SideShort, "1", "-5"},
		{"half-fraction", "100", "110", "0.5", types.SideLong, "1", "5"},
		{"leveraged", "100", "110", "1", types.SideLong, "10", "100"},
		{"leveraged-half-short", "200", "190", "0.5", types.SideShort, "5", "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LegPnl(dec(tt.entry), dec(tt.exit), dec(tt.fraction), tt.side, dec(tt.leverage))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFee(t *testing.T) {
	got := Fee(dec("1000"), dec("0.00055"))
	if !got.Equal(dec("0.55")) {
		t.Errorf("got %s, want 0.55", got)
	}
}

func TestAggregateTwoLegs(t *testing.T) {
	legs := []types.ClosedLeg{
		{Trigger: "TP1", Price: dec("105"), Fraction: dec("0.5")},
		{Trigger: "TP2", Price: dec("110"), Fraction: dec("0.5")},
	}

	sum := Aggregate(legs, dec("100"), types.SideLong, dec("1"), decimal.Zero)

	// (105-100)*0.5 + (110-100)*0.5 = 7.5
	if !sum.RealizedPnl.Equal(dec("7.5")) {
		t.Errorf("pnl %s, want 7.5", sum.RealizedPnl)
	}
	if !sum.RoiPercent.Equal(dec("7.5")) {
		t.Errorf("roi %s, want 7.5", sum.RoiPercent)
	}
	if !sum.FeesPaid.IsZero() {
		t.Errorf("fees %s, want 0", sum.FeesPaid)
	}
}

func TestAggregateFees(t *testing.T) {
	legs := []types.ClosedLeg{
		{Trigger: "TP1", Price: dec("110"), Fraction: dec("1")},
	}

	sum := Aggregate(legs, dec("100"), types.SideLong, dec("1"), dec("0.001"))

	// Entry fee 100*0.001 = 0.1, exit fee 110*0.001 = 0.11
	if !sum.FeesPaid.Equal(dec("0.21")) {
		t.Errorf("fees %s, want 0.21", sum.FeesPaid)
	}
	if !sum.RealizedPnl.Equal(dec("9.79")) {
		t.Errorf("pnl %s, want 9.79", sum.RealizedPnl)
	}
}

func TestAggregateLeverageScalesExposureNotMargin(t *testing.T) {
	legs := []types.ClosedLeg{
		{Trigger: "TP1", Price: dec("101"), Fraction: dec("1")},
	}

	sum := Aggregate(legs, dec("100"), types.SideLong, dec("10"), decimal.Zero)

	// 1 price unit of movement at 10x on 100 margin
	if !sum.RealizedPnl.Equal(dec("10")) {
		t.Errorf("pnl %s, want 10", sum.RealizedPnl)
	}
	if !sum.RoiPercent.Equal(dec("10")) {
		t.Errorf("roi %s, want 10", sum.RoiPercent)
	}
}

func TestAggregateNeverFilled(t *testing.T) {
	sum := Aggregate(nil, decimal.Zero, types.SideLong, dec("1"), dec("0.001"))

	if !sum.RealizedPnl.IsZero() || !sum.RoiPercent.IsZero() || !sum.FeesPaid.IsZero() {
		t.Errorf("unfilled position must have zero economics, got %+v", sum)
	}
}

func TestFractionSum(t *testing.T) {
	legs := []types.ClosedLeg{
		{Fraction: dec("0.3")},
		{Fraction: dec("0.3")},
		{Fraction: dec("0.4")},
	}

	if got := FractionSum(legs); !got.Equal(dec("1")) {
		t.Errorf("got %s, want 1", got)
	}
}

func TestEqualSplit(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 7} {
		split := EqualSplit(n)
		if len(split) != n {
			t.Fatalf("n=%d: got %d fractions", n, len(split))
		}

		sum := decimal.Zero
		for _, f := range split {
			if !f.IsPositive() {
				t.Errorf("n=%d: non-positive fraction %s", n, f)
			}
			sum = sum.Add(f)
		}
		if !sum.Equal(decimal.NewFromInt(1)) {
			t.Errorf("n=%d: fractions sum to %s, want exactly 1", n, sum)
		}
	}

	if EqualSplit(0) != nil {
		t.Error("n=0 must return nil")
	}
}
