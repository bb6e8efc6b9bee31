package indicator

import (
	"errors"
	"fmt"

	"github.com/ksered/cadence/shared"
)

const (
	// MinCandles is the minimum number of candles required to compute a snapshot.
	MinCandles = 30
	// FibonacciWindow is the number of recent candles the retracement levels
	// are derived from.
	FibonacciWindow = 100
)

// Config represents the indicator period parameters.
type Config struct {
	// EMAShortPeriod is the short trend average period.
	EMAShortPeriod int
	// EMALongPeriod is the long trend average period.
	EMALongPeriod int
	// RSIPeriod is the momentum oscillator period.
	RSIPeriod int
	// StochasticPeriod is the stochastic oscillator lookback period.
	StochasticPeriod int
	// StochasticSmoothing is the %D smoothing window.
	StochasticSmoothing int
	// MACDFastPeriod is the convergence fast average period.
	MACDFastPeriod int
	// MACDSlowPeriod is the convergence slow average period.
	MACDSlowPeriod int
	// MACDSignalPeriod is the convergence signal smoothing period.
	MACDSignalPeriod int
	// ATRPeriod is the volatility range period.
	ATRPeriod int
	// VolumeSMAPeriod is the volume baseline period.
	VolumeSMAPeriod int
}

// DefaultConfig returns the default indicator period parameters.
func DefaultConfig() Config {
	return Config{
		EMAShortPeriod:      9,
		EMALongPeriod:       21,
		RSIPeriod:           14,
		StochasticPeriod:    14,
		StochasticSmoothing: 3,
		MACDFastPeriod:      12,
		MACDSlowPeriod:      26,
		MACDSignalPeriod:    9,
		ATRPeriod:           14,
		VolumeSMAPeriod:     20,
	}
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	periods := map[string]int{
		"ema short period":      cfg.EMAShortPeriod,
		"ema long period":       cfg.EMALongPeriod,
		"rsi period":            cfg.RSIPeriod,
		"stochastic period":     cfg.StochasticPeriod,
		"stochastic smoothing":  cfg.StochasticSmoothing,
		"macd fast period":      cfg.MACDFastPeriod,
		"macd slow period":      cfg.MACDSlowPeriod,
		"macd signal period":    cfg.MACDSignalPeriod,
		"atr period":            cfg.ATRPeriod,
		"volume average period": cfg.VolumeSMAPeriod,
	}
	for name, period := range periods {
		if period <= 0 {
			errs = errors.Join(errs, fmt.Errorf("%s must be positive, got %d", name, period))
		}
	}

	if cfg.EMAShortPeriod >= cfg.EMALongPeriod {
		errs = errors.Join(errs, fmt.Errorf("ema short period (%d) must be below the long period (%d)",
			cfg.EMAShortPeriod, cfg.EMALongPeriod))
	}
	if cfg.MACDFastPeriod >= cfg.MACDSlowPeriod {
		errs = errors.Join(errs, fmt.Errorf("macd fast period (%d) must be below the slow period (%d)",
			cfg.MACDFastPeriod, cfg.MACDSlowPeriod))
	}

	return errs
}

// FibonacciLevels represents retracement levels interpolated between the
// rolling high and low extremes of a series.
type FibonacciLevels struct {
	Level0   float64
	Level23  float64
	Level38  float64
	Level50  float64
	Level61  float64
	Level100 float64
}

// Snapshot represents derived indicator values for a market and timeframe at
// an evaluation instant.
type Snapshot struct {
	Market    string
	Timeframe shared.Timeframe

	EMAShort      float64
	EMALong       float64
	RSI           float64
	StochasticK   float64
	StochasticD   float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	ATR           float64
	VolumeSMA     float64
	Fibonacci     FibonacciLevels
	RecentHigh    float64
	RecentLow     float64

	// Valid reports whether the snapshot was computed from sufficient data.
	Valid bool
}

// Empty reports whether the snapshot lacks computed indicator values.
func (s *Snapshot) Empty() bool {
	return s == nil || !s.Valid
}

// Compute derives an indicator snapshot from the provided candles. It is a
// pure transform: deterministic for a given input and parameter set, with no
// side effects. Fewer than MinCandles candles yields an empty snapshot rather
// than an error.
func Compute(market string, timeframe shared.Timeframe, candles []shared.Candlestick, cfg Config) Snapshot {
	if len(candles) < MinCandles {
		return Snapshot{Market: market, Timeframe: timeframe}
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for idx := range candles {
		closes[idx] = candles[idx].Close
		highs[idx] = candles[idx].High
		lows[idx] = candles[idx].Low
		volumes[idx] = candles[idx].Volume
	}

	stochasticK, stochasticD := stochastic(highs, lows, closes, cfg.StochasticPeriod, cfg.StochasticSmoothing)
	line, signal, histogram := convergence(closes, cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod)

	window := FibonacciWindow
	if window > len(candles) {
		window = len(candles)
	}

	recentHigh := highs[len(highs)-window]
	recentLow := lows[len(lows)-window]
	for idx := len(candles) - window; idx < len(candles); idx++ {
		if highs[idx] > recentHigh {
			recentHigh = highs[idx]
		}
		if lows[idx] < recentLow {
			recentLow = lows[idx]
		}
	}

	priceRange := recentHigh - recentLow

	return Snapshot{
		Market:        market,
		Timeframe:     timeframe,
		EMAShort:      lastEntry(emaSeries(closes, cfg.EMAShortPeriod)),
		EMALong:       lastEntry(emaSeries(closes, cfg.EMALongPeriod)),
		RSI:           relativeStrengthIndex(closes, cfg.RSIPeriod),
		StochasticK:   stochasticK,
		StochasticD:   stochasticD,
		MACD:          line,
		MACDSignal:    signal,
		MACDHistogram: histogram,
		ATR:           averageTrueRange(highs, lows, closes, cfg.ATRPeriod),
		VolumeSMA:     lastEntry(smaSeries(volumes, cfg.VolumeSMAPeriod)),
		Fibonacci: FibonacciLevels{
			Level0:   recentHigh,
			Level23:  recentHigh - priceRange*0.236,
			Level38:  recentHigh - priceRange*0.382,
			Level50:  recentHigh - priceRange*0.5,
			Level61:  recentHigh - priceRange*0.618,
			Level100: recentLow,
		},
		RecentHigh: recentHigh,
		RecentLow:  recentLow,
		Valid:      true,
	}
}
