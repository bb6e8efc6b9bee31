package fetch

import (
	"testing"
	"time"

	"github.com/ksered/cadence/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestParseKlineEvent(t *testing.T) {
	payload := []byte(`{
		"e": "kline",
		"E": 1709284512345,
		"s": "BTCUSDT",
		"k": {
			"t": 1709284500000,
			"T": 1709284799999,
			"s": "BTCUSDT",
			"i": "5m",
			"o": "50000.1",
			"c": "50050.3",
			"h": "50100.5",
			"l": "49950.2",
			"v": "12.5",
			"x": false
		}
	}`)

	// Ensure a kline stream payload parses into a candle.
	candle, ok := parseKlineEvent(payload, "BTCUSDT", shared.FiveMinute)
	assert.True(t, ok)
	assert.Equal(t, candle.Open, float64(50000.1))
	assert.Equal(t, candle.High, float64(50100.5))
	assert.Equal(t, candle.Low, float64(49950.2))
	assert.Equal(t, candle.Close, float64(50050.3))
	assert.Equal(t, candle.Volume, float64(12.5))
	assert.Equal(t, candle.OpenTime, time.UnixMilli(1709284500000))
	assert.Equal(t, candle.CloseTime, time.UnixMilli(1709284799999))
	assert.Equal(t, candle.Market, "BTCUSDT")
	assert.Equal(t, candle.Timeframe, shared.FiveMinute)

	// Ensure payloads without a kline object are skipped.
	_, ok = parseKlineEvent([]byte(`{"result":null,"id":1}`), "BTCUSDT", shared.FiveMinute)
	assert.False(t, ok)
}

func TestNewStream(t *testing.T) {
	// Ensure the stream requires an endpoint.
	_, err := NewStream(&StreamConfig{Logger: &log.Logger})
	assert.Error(t, err)

	// Ensure backoff defaults are applied.
	stream, err := NewStream(&StreamConfig{URL: StreamURL, Logger: &log.Logger})
	assert.NoError(t, err)
	assert.Equal(t, stream.cfg.ReconnectDelay, time.Second*2)
	assert.Equal(t, stream.cfg.MaxReconnectDelay, time.Second*30)

	// Ensure subscriptions require an update callback.
	_, err = stream.Subscribe("BTCUSDT", shared.FiveMinute, nil)
	assert.Error(t, err)
}
