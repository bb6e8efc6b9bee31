package engine

import (
	"sync"
	"time"

	"github.com/ksered/cadence/indicator"
	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultTrendScoreThreshold is the minimum condition score for a
	// trend-confirmed signal.
	DefaultTrendScoreThreshold = 4
	// DefaultCounterTrendScoreThreshold is the minimum condition score for a
	// signal issued against the confirmed higher-timeframe trend.
	DefaultCounterTrendScoreThreshold = 4

	// Momentum oscillator entry thresholds.
	oversoldThreshold   = 35
	overboughtThreshold = 65
	// Stochastic %K entry thresholds.
	stochasticBuyThreshold  = 25
	stochasticSellThreshold = 75
	// volumeBaselineMultiplier is the required volume excess over the baseline.
	volumeBaselineMultiplier = 1.3
	// Retracement tolerance multipliers. These are policy constants carried
	// over verbatim, not incidental rounding.
	upperToleranceMultiplier = 1.01
	lowerToleranceMultiplier = 0.99
)

// EvaluatorConfig represents the signal evaluator configuration.
type EvaluatorConfig struct {
	// TrendScoreThreshold overrides the trend-confirmed score threshold.
	TrendScoreThreshold uint32
	// CounterTrendScoreThreshold overrides the counter-trend score threshold.
	CounterTrendScoreThreshold uint32
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Evaluator fuses indicator snapshots across timeframes into scored,
// trend-checked signals and retains a bounded signal history.
type Evaluator struct {
	cfg        *EvaluatorConfig
	history    []shared.Signal
	historyMtx sync.RWMutex
}

// NewEvaluator initializes a new signal evaluator.
func NewEvaluator(cfg *EvaluatorConfig) *Evaluator {
	if cfg.TrendScoreThreshold == 0 {
		cfg.TrendScoreThreshold = DefaultTrendScoreThreshold
	}
	if cfg.CounterTrendScoreThreshold == 0 {
		cfg.CounterTrendScoreThreshold = DefaultCounterTrendScoreThreshold
	}

	return &Evaluator{
		cfg:     cfg,
		history: make([]shared.Signal, 0, shared.MaxSignalHistory),
	}
}

// buyConditions returns the met buy conditions for the provided main
// timeframe snapshot and its most recent candle.
func buyConditions(snapshot *indicator.Snapshot, last *shared.Candlestick) []shared.Condition {
	conditions := make([]shared.Condition, 0, 6)

	if snapshot.RSI < oversoldThreshold {
		conditions = append(conditions, shared.OversoldMomentum)
	}
	if snapshot.StochasticK < stochasticBuyThreshold && snapshot.StochasticK > snapshot.StochasticD {
		conditions = append(conditions, shared.StochasticCross)
	}
	if snapshot.EMAShort > snapshot.EMALong {
		conditions = append(conditions, shared.TrendAlignment)
	}
	if snapshot.MACDHistogram > 0 && snapshot.MACDHistogram > snapshot.MACDSignal {
		conditions = append(conditions, shared.ConvergenceMomentum)
	}
	if last.Volume > snapshot.VolumeSMA*volumeBaselineMultiplier {
		conditions = append(conditions, shared.StrongVolume)
	}
	if last.Close <= snapshot.Fibonacci.Level61*upperToleranceMultiplier {
		conditions = append(conditions, shared.FibonacciRetracement)
	}

	return conditions
}

// sellConditions returns the met sell conditions for the provided main
// timeframe snapshot and its most recent candle.
func sellConditions(snapshot *indicator.Snapshot, last *shared.Candlestick) []shared.Condition {
	conditions := make([]shared.Condition, 0, 6)

	if snapshot.RSI > overboughtThreshold {
		conditions = append(conditions, shared.OverboughtMomentum)
	}
	if snapshot.StochasticK > stochasticSellThreshold && snapshot.StochasticK < snapshot.StochasticD {
		conditions = append(conditions, shared.StochasticCross)
	}
	if snapshot.EMAShort < snapshot.EMALong {
		conditions = append(conditions, shared.TrendAlignment)
	}
	if snapshot.MACDHistogram < 0 && snapshot.MACDHistogram < snapshot.MACDSignal {
		conditions = append(conditions, shared.ConvergenceMomentum)
	}
	if last.Volume > snapshot.VolumeSMA*volumeBaselineMultiplier {
		conditions = append(conditions, shared.StrongVolume)
	}
	if last.Close >= snapshot.Fibonacci.Level38*lowerToleranceMultiplier {
		conditions = append(conditions, shared.FibonacciRetracement)
	}

	return conditions
}

// Evaluate combines the provided main timeframe snapshot with the hourly and
// daily confirmation snapshots into at most one signal. A missing or empty
// snapshot yields no signal, not an error. When both directions reach the
// counter-trend threshold the buy direction is checked first.
func (e *Evaluator) Evaluate(main *indicator.Snapshot, hourly *indicator.Snapshot,
	daily *indicator.Snapshot, last *shared.Candlestick) *shared.Signal {
	if main.Empty() || hourly.Empty() || daily.Empty() || last == nil {
		return nil
	}

	bullishTrend := hourly.EMAShort > hourly.EMALong && daily.EMAShort > daily.EMALong
	bearishTrend := hourly.EMAShort < hourly.EMALong && daily.EMAShort < daily.EMALong

	met := buyConditions(main, last)
	buyScore := uint32(len(met))
	sellMet := sellConditions(main, last)
	sellScore := uint32(len(sellMet))

	var signal shared.Signal
	switch {
	case bullishTrend && buyScore >= e.cfg.TrendScoreThreshold:
		signal = shared.NewSignal(main.Market, main.Timeframe, shared.Buy, last.Close,
			met, false, time.Now())
	case bearishTrend && sellScore >= e.cfg.TrendScoreThreshold:
		signal = shared.NewSignal(main.Market, main.Timeframe, shared.Sell, last.Close,
			sellMet, false, time.Now())
	case buyScore >= e.cfg.CounterTrendScoreThreshold:
		signal = shared.NewSignal(main.Market, main.Timeframe, shared.Buy, last.Close,
			met, true, time.Now())
	case sellScore >= e.cfg.CounterTrendScoreThreshold:
		signal = shared.NewSignal(main.Market, main.Timeframe, shared.Sell, last.Close,
			sellMet, true, time.Now())
	default:
		e.cfg.Logger.Debug().Msgf("no qualifying signal for %s: buy score %d, sell score %d",
			main.Market, buyScore, sellScore)
		return nil
	}

	e.cfg.Logger.Info().Msgf("%s signal for %s: score %d/6 @ %f (counter-trend: %v)",
		signal.Direction.String(), signal.Market, signal.Score, signal.Price, signal.CounterTrend)

	e.recordSignal(signal)
	return &signal
}

// recordSignal appends the provided signal to the bounded history.
func (e *Evaluator) recordSignal(signal shared.Signal) {
	e.historyMtx.Lock()
	defer e.historyMtx.Unlock()

	e.history = append(e.history, signal)
	if len(e.history) > shared.MaxSignalHistory {
		e.history = e.history[len(e.history)-shared.MaxSignalHistory:]
	}
}

// SignalHistory returns a copy of the retained signal history, most recent last.
func (e *Evaluator) SignalHistory() []shared.Signal {
	e.historyMtx.RLock()
	defer e.historyMtx.RUnlock()

	set := make([]shared.Signal, len(e.history))
	copy(set, e.history)

	return set
}
