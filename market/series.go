package market

import (
	"errors"
	"sync"

	"github.com/ksered/cadence/shared"
)

// ErrStaleUpdate is returned when an increment carries an older open time than
// the most recent stored candle. Out-of-order insertion is not supported.
var ErrStaleUpdate = errors.New("stale candle update")

// Series is a bounded, time-ordered candle series for a single timeframe.
// Batch refreshes and live increments serialize through its lock so readers
// never observe a partially applied update.
type Series struct {
	data    []shared.Candlestick
	dataMtx sync.RWMutex
	start   int
	count   int
	size    int
}

// NewSeries initializes a new candle series with the provided capacity.
func NewSeries(size int) (*Series, error) {
	if size <= 0 {
		return nil, errors.New("series capacity must be positive")
	}

	return &Series{
		data: make([]shared.Candlestick, size),
		size: size,
	}, nil
}

// ApplyBatch replaces the stored series with the provided candles, keeping
// only the most recent ones when the batch exceeds capacity.
func (s *Series) ApplyBatch(candles []shared.Candlestick) {
	s.dataMtx.Lock()
	defer s.dataMtx.Unlock()

	if len(candles) > s.size {
		candles = candles[len(candles)-s.size:]
	}

	s.start = 0
	s.count = copy(s.data, candles)
}

// ApplyIncrement merges a single live update into the series. An update
// matching the open time of the most recent candle replaces it in place,
// a newer one is appended (evicting the oldest entry at capacity) and an
// older one is rejected with ErrStaleUpdate.
func (s *Series) ApplyIncrement(candle shared.Candlestick) error {
	s.dataMtx.Lock()
	defer s.dataMtx.Unlock()

	if s.count > 0 {
		end := (s.start + s.count - 1) % s.size
		last := &s.data[end]

		switch {
		case candle.OpenTime.Equal(last.OpenTime):
			*last = candle
			return nil
		case candle.OpenTime.Before(last.OpenTime):
			return ErrStaleUpdate
		}
	}

	end := (s.start + s.count) % s.size
	s.data[end] = candle

	if s.count == s.size {
		// Overwrite the oldest entry when the series is at capacity.
		s.start = (s.start + 1) % s.size
	} else {
		s.count++
	}

	return nil
}

// Snapshot returns an ordered copy of the stored candles. Callers receive an
// independent slice, never a mutable handle into the series.
func (s *Series) Snapshot() []shared.Candlestick {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	set := make([]shared.Candlestick, s.count)
	for idx := range s.count {
		set[idx] = s.data[(s.start+idx)%s.size]
	}

	return set
}

// Last returns the most recent candle of the series.
func (s *Series) Last() (shared.Candlestick, bool) {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	if s.count == 0 {
		return shared.Candlestick{}, false
	}

	return s.data[(s.start+s.count-1)%s.size], true
}

// Len returns the number of stored candles.
func (s *Series) Len() int {
	s.dataMtx.RLock()
	defer s.dataMtx.RUnlock()

	return s.count
}
