package shared

import "time"

// MaxSignalHistory is the maximum number of signals retained for display and audit.
const MaxSignalHistory = 20

// Signal represents a scored, trend-checked entry signal for a market.
type Signal struct {
	Market       string
	Timeframe    Timeframe
	Direction    Direction
	Price        float64
	Conditions   []Condition
	Score        uint32
	CounterTrend bool
	CreatedOn    time.Time
}

// NewSignal initializes a new signal.
func NewSignal(market string, timeframe Timeframe, direction Direction, price float64,
	conditions []Condition, counterTrend bool, created time.Time) Signal {
	return Signal{
		Market:       market,
		Timeframe:    timeframe,
		Direction:    direction,
		Price:        price,
		Conditions:   conditions,
		Score:        uint32(len(conditions)),
		CounterTrend: counterTrend,
		CreatedOn:    created,
	}
}
