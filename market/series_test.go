package market

import (
	"testing"
	"time"

	"github.com/ksered/cadence/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

var seriesBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// seriesCandle creates a synthetic candle at the provided five minute slot.
func seriesCandle(slot int, close float64) shared.Candlestick {
	openTime := seriesBase.Add(time.Duration(slot) * time.Minute * 5)
	return shared.Candlestick{
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    10,
		OpenTime:  openTime,
		CloseTime: openTime.Add(time.Minute * 5),
		Market:    "BTCUSDT",
		Timeframe: shared.FiveMinute,
	}
}

func TestSeries(t *testing.T) {
	// Ensure the series capacity cannot be negative or zero.
	_, err := NewSeries(-1)
	assert.Error(t, err)

	_, err = NewSeries(0)
	assert.Error(t, err)

	// Ensure a series can be created and batch filled.
	series, err := NewSeries(4)
	assert.NoError(t, err)

	series.ApplyBatch([]shared.Candlestick{seriesCandle(0, 100), seriesCandle(1, 101)})
	assert.Equal(t, series.Len(), 2)

	set := series.Snapshot()
	assert.Equal(t, len(set), 2)
	assert.Equal(t, set[0].Close, float64(100))
	assert.Equal(t, set[1].Close, float64(101))

	// Ensure an increment with a new open time appends a candle.
	err = series.ApplyIncrement(seriesCandle(2, 102))
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 3)

	// Ensure an increment matching the last open time replaces it in place.
	update := seriesCandle(2, 103)
	err = series.ApplyIncrement(update)
	assert.NoError(t, err)
	assert.Equal(t, series.Len(), 3)

	last, ok := series.Last()
	assert.True(t, ok)
	assert.Equal(t, last.Close, float64(103))

	// Ensure an increment older than the last candle is rejected.
	err = series.ApplyIncrement(seriesCandle(1, 99))
	assert.Error(t, err)
	assert.Equal(t, series.Len(), 3)

	// Ensure increments beyond capacity evict the oldest entry.
	err = series.ApplyIncrement(seriesCandle(3, 104))
	assert.NoError(t, err)
	err = series.ApplyIncrement(seriesCandle(4, 105))
	assert.NoError(t, err)

	assert.Equal(t, series.Len(), 4)
	set = series.Snapshot()
	assert.Equal(t, set[0].Close, float64(101))
	assert.Equal(t, set[len(set)-1].Close, float64(105))

	// Ensure a batch larger than capacity keeps only the most recent candles.
	batch := make([]shared.Candlestick, 6)
	for idx := range batch {
		batch[idx] = seriesCandle(idx, float64(200+idx))
	}
	series.ApplyBatch(batch)

	assert.Equal(t, series.Len(), 4)
	set = series.Snapshot()
	assert.Equal(t, set[0].Close, float64(202))
	assert.Equal(t, set[len(set)-1].Close, float64(205))
}

func TestSeriesSnapshotIsolation(t *testing.T) {
	series, err := NewSeries(4)
	assert.NoError(t, err)

	series.ApplyBatch([]shared.Candlestick{seriesCandle(0, 100), seriesCandle(1, 101)})

	// Ensure mutating a snapshot does not affect the stored series.
	set := series.Snapshot()
	set[0].Close = 1

	fresh := series.Snapshot()
	assert.Equal(t, fresh[0].Close, float64(100))
}

func TestStore(t *testing.T) {
	// Ensure the store requires at least one timeframe.
	_, err := NewStore(&StoreConfig{
		Market: "BTCUSDT",
		Logger: &log.Logger,
	})
	assert.Error(t, err)

	store, err := NewStore(&StoreConfig{
		Market:     "BTCUSDT",
		Timeframes: []shared.Timeframe{shared.FiveMinute, shared.OneHour},
		Logger:     &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure applying a batch for an untracked timeframe fails.
	err = store.ApplyBatch(shared.OneDay, []shared.Candlestick{seriesCandle(0, 100)})
	assert.Error(t, err)

	// Ensure batches and increments land in their timeframe series.
	err = store.ApplyBatch(shared.FiveMinute, []shared.Candlestick{seriesCandle(0, 100)})
	assert.NoError(t, err)

	store.ApplyIncrement(seriesCandle(1, 101))
	assert.Equal(t, len(store.Snapshot(shared.FiveMinute)), 2)
	assert.Equal(t, len(store.Snapshot(shared.OneHour)), 0)

	// Ensure stale increments are dropped without affecting the series.
	store.ApplyIncrement(seriesCandle(0, 99))
	assert.Equal(t, len(store.Snapshot(shared.FiveMinute)), 2)

	// Ensure the last close can be fetched.
	lastClose, ok := store.LastClose(shared.FiveMinute)
	assert.True(t, ok)
	assert.Equal(t, lastClose, float64(101))

	_, ok = store.LastClose(shared.OneHour)
	assert.False(t, ok)

	// Ensure consecutive increments with the same open time result in one
	// updated candle, not two.
	first := seriesCandle(2, 102)
	second := seriesCandle(2, 103)
	store.ApplyIncrement(first)
	store.ApplyIncrement(second)

	set := store.Snapshot(shared.FiveMinute)
	assert.Equal(t, len(set), 3)
	assert.Equal(t, set[len(set)-1].Close, float64(103))
}
