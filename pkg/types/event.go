package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies a lifecycle transition.
type EventType string

const (
	EventEntered EventType = "ENTERED"
	EventTPHit   EventType = "TP_HIT"
	EventSLHit   EventType = "SL_HIT"
	EventClosed  EventType = "CLOSED"
)

// LifecycleEvent is published to the event sink on every evaluator
// transition. TPLevel is 1-based and set only for EventTPHit.
type LifecycleEvent struct {
	SignalID       string          `json:"signal_id"`
	Symbol         string          `json:"symbol"`
	Type           EventType       `json:"type"`
	TPLevel        int             `json:"tp_level,omitempty"`
	Price          decimal.Decimal `json:"price,omitempty"`
	Fraction       decimal.Decimal `json:"fraction,omitempty"`
	Classification Classification  `json:"classification,omitempty"` // EventClosed only
	Timestamp      time.Time       `json:"timestamp"`
}

// Name renders the event the way downstream consumers key on it
// (ENTERED, TP1_HIT, TP2_HIT, SL_HIT, CLOSED, ...).
func (e *LifecycleEvent) Name() string {
	if e.Type == EventTPHit {
		return fmt.Sprintf("TP%d_HIT", e.TPLevel)
	}
	return string(e.Type)
}
