package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// StreamConfig represents the configuration for the live candle stream.
type StreamConfig struct {
	// URL is the websocket endpoint of the exchange.
	URL string
	// ReconnectDelay is the initial delay before reconnection attempts.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the reconnection backoff.
	MaxReconnectDelay time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Stream provides live candle updates over a websocket connection, feeding
// each update to the subscriber callback. Disconnections are retried with
// exponential backoff until the subscription is cancelled.
type Stream struct {
	cfg *StreamConfig
}

// Ensure the stream implements the LiveStreamer interface.
var _ shared.LiveStreamer = (*Stream)(nil)

// NewStream initializes a new live candle stream.
func NewStream(cfg *StreamConfig) (*Stream, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream url cannot be an empty string")
	}

	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = time.Second * 2
	}
	if cfg.MaxReconnectDelay == 0 {
		cfg.MaxReconnectDelay = time.Second * 30
	}

	return &Stream{cfg: cfg}, nil
}

// parseKlineEvent parses a candle update from the provided kline stream
// payload.
func parseKlineEvent(payload []byte, market string, timeframe shared.Timeframe) (shared.Candlestick, bool) {
	kline := gjson.GetBytes(payload, "k")
	if !kline.Exists() {
		return shared.Candlestick{}, false
	}

	candle := shared.Candlestick{
		Open:      kline.Get("o").Float(),
		High:      kline.Get("h").Float(),
		Low:       kline.Get("l").Float(),
		Close:     kline.Get("c").Float(),
		Volume:    kline.Get("v").Float(),
		OpenTime:  time.UnixMilli(kline.Get("t").Int()),
		CloseTime: time.UnixMilli(kline.Get("T").Int()),
		Market:    market,
		Timeframe: timeframe,
	}

	return candle, true
}

// Subscribe streams live candle updates for the provided market and timeframe
// to the update callback. The returned function cancels the subscription.
func (s *Stream) Subscribe(market string, timeframe shared.Timeframe, onUpdate func(shared.Candlestick)) (func(), error) {
	if onUpdate == nil {
		return nil, fmt.Errorf("update callback cannot be nil")
	}

	endpoint := fmt.Sprintf("%s/%s@kline_%s", s.cfg.URL, strings.ToLower(market), timeframe.String())

	ctx, cancel := context.WithCancel(context.Background())
	go s.run(ctx, endpoint, market, timeframe, onUpdate)

	return cancel, nil
}

// run maintains the websocket connection for a subscription, reconnecting
// with backoff until the subscription context is cancelled.
func (s *Stream) run(ctx context.Context, endpoint string, market string, timeframe shared.Timeframe, onUpdate func(shared.Candlestick)) {
	delay := s.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.readLoop(ctx, endpoint, market, timeframe, onUpdate)
		if err == nil {
			// The subscription was cancelled cleanly.
			return
		}

		s.cfg.Logger.Error().Msgf("stream disconnected for %s (%s), reconnecting in %s: %v",
			market, timeframe.String(), delay, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.MaxReconnectDelay {
			delay = s.cfg.MaxReconnectDelay
		}
	}
}

// readLoop dials the stream endpoint and relays candle updates until the
// connection drops or the subscription is cancelled.
func (s *Stream) readLoop(ctx context.Context, endpoint string, market string, timeframe shared.Timeframe, onUpdate func(shared.Candlestick)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	// Unblock the read loop when the subscription is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading stream message: %w", err)
		}

		candle, ok := parseKlineEvent(payload, market, timeframe)
		if !ok {
			s.cfg.Logger.Warn().Msgf("skipping malformed stream payload for %s", market)
			continue
		}

		onUpdate(candle)
	}
}
