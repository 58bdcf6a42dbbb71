package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observation from a price series: either a single trade
// print or one OHLC bar. Timestamps are monotonically non-decreasing within a
// symbol's stream. For bars, High/Low are treated as the extremes reachable
// within the bar's timestamp.
type PricePoint struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Candle    bool            `json:"candle"`
	Price     decimal.Decimal `json:"price,omitempty"` // trade mode
	Open      decimal.Decimal `json:"open,omitempty"`
	High      decimal.Decimal `json:"high,omitempty"`
	Low       decimal.Decimal `json:"low,omitempty"`
	Close     decimal.Decimal `json:"close,omitempty"`
}

// NewTradePoint builds a trade-print observation.
func NewTradePoint(symbol string, ts time.Time, price decimal.Decimal) PricePoint {
	return PricePoint{Symbol: symbol, Timestamp: ts, Price: price}
}

// NewCandlePoint builds an OHLC bar observation.
func NewCandlePoint(symbol string, ts time.Time, open, high, low, closePx decimal.Decimal) PricePoint {
	return PricePoint{
		Symbol:    symbol,
		Timestamp: ts,
		Candle:    true,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
	}
}

// First is the earliest price inside the observation: the open for a bar,
// the print itself for a trade. MARKET entries fill here.
func (p *PricePoint) First() decimal.Decimal {
	if p.Candle {
		return p.Open
	}
	return p.Price
}

// Last is the latest price inside the observation.
func (p *PricePoint) Last() decimal.Decimal {
	if p.Candle {
		return p.Close
	}
	return p.Price
}

// RangeLow is the lowest price reachable within the observation.
func (p *PricePoint) RangeLow() decimal.Decimal {
	if p.Candle {
		return p.Low
	}
	return p.Price
}

// RangeHigh is the highest price reachable within the observation.
func (p *PricePoint) RangeHigh() decimal.Decimal {
	if p.Candle {
		return p.High
	}
	return p.Price
}

// Contains reports whether the level lies within [RangeLow, RangeHigh].
func (p *PricePoint) Contains(level decimal.Decimal) bool {
	return level.GreaterThanOrEqual(p.RangeLow()) && level.LessThanOrEqual(p.RangeHigh())
}
