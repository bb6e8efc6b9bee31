package position

import (
	"time"

	"github.com/ksered/cadence/shared"
)

// TradeStatus represents the status of a simulated trade.
type TradeStatus int

const (
	Open TradeStatus = iota
	Closed
)

// String stringifies the provided trade status.
func (s TradeStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason represents the reason a trade was closed.
type CloseReason string

const (
	TargetHit CloseReason = "TP HIT"
	StopHit   CloseReason = "SL HIT"
)

// Trade represents a simulated market trade opened from an entry signal.
// A trade is mutated only by the closure check, which fills the exit fields
// exactly once; it is immutable afterwards.
type Trade struct {
	ID           string
	Market       string
	Timeframe    shared.Timeframe
	Direction    shared.Direction
	Quantity     float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	Score        uint32
	CounterTrend bool
	Status       TradeStatus
	OpenedOn     time.Time

	// Closure fields, set together on the open to closed transition.
	ExitPrice   float64
	ClosedOn    time.Time
	PNL         float64
	CloseReason CloseReason
}
