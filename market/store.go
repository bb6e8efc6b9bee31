package market

import (
	"errors"
	"fmt"

	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
)

// SeriesSize is the maximum number of candles retained per timeframe.
const SeriesSize = 100

// StoreConfig represents the candle store configuration.
type StoreConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframes are the tracked timeframes for the market.
	Timeframes []shared.Timeframe
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Store holds bounded candle series per timeframe for a market. Periodic
// batch fetches and asynchronous live increments both funnel through the
// underlying series locks, keeping a single-writer discipline per series.
type Store struct {
	cfg    *StoreConfig
	series map[shared.Timeframe]*Series
}

// NewStore initializes a new candle store.
func NewStore(cfg *StoreConfig) (*Store, error) {
	if len(cfg.Timeframes) == 0 {
		return nil, errors.New("no timeframes provided for candle store")
	}

	series := make(map[shared.Timeframe]*Series, len(cfg.Timeframes))
	for _, timeframe := range cfg.Timeframes {
		sr, err := NewSeries(SeriesSize)
		if err != nil {
			return nil, fmt.Errorf("creating %s series: %w", timeframe.String(), err)
		}

		series[timeframe] = sr
	}

	return &Store{
		cfg:    cfg,
		series: series,
	}, nil
}

// ApplyBatch replaces the stored series for the provided timeframe.
func (s *Store) ApplyBatch(timeframe shared.Timeframe, candles []shared.Candlestick) error {
	sr, ok := s.series[timeframe]
	if !ok {
		return fmt.Errorf("no tracked series for timeframe %s", timeframe.String())
	}

	sr.ApplyBatch(candles)
	return nil
}

// ApplyIncrement merges a single live candle update into its timeframe
// series. Stale updates are dropped and logged, not fatal.
func (s *Store) ApplyIncrement(candle shared.Candlestick) {
	sr, ok := s.series[candle.Timeframe]
	if !ok {
		s.cfg.Logger.Error().Msgf("no tracked series for timeframe %s", candle.Timeframe.String())
		return
	}

	err := sr.ApplyIncrement(candle)
	if err != nil {
		s.cfg.Logger.Warn().Msgf("dropping %s update for %s: %v",
			candle.Timeframe.String(), s.cfg.Market, err)
	}
}

// Snapshot returns an ordered copy of the candles stored for the provided
// timeframe.
func (s *Store) Snapshot(timeframe shared.Timeframe) []shared.Candlestick {
	sr, ok := s.series[timeframe]
	if !ok {
		return nil
	}

	return sr.Snapshot()
}

// LastClose returns the close of the most recent candle for the provided
// timeframe.
func (s *Store) LastClose(timeframe shared.Timeframe) (float64, bool) {
	sr, ok := s.series[timeframe]
	if !ok {
		return 0, false
	}

	last, ok := sr.Last()
	if !ok {
		return 0, false
	}

	return last.Close, true
}
