package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ksered/cadence/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the default REST endpoint of the exchange.
	BaseURL = "https://api.binance.com"
	// StreamURL is the default websocket endpoint of the exchange.
	StreamURL = "wss://stream.binance.com:9443/ws"
)

// BinanceConfig represents the configuration for the exchange client.
type BinanceConfig struct {
	// BaseURL is the REST endpoint of the exchange.
	BaseURL string
}

// BinanceClient represents the exchange REST client for public market data.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
	buf   *bytes.Buffer
}

// Ensure the exchange client implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new exchange client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be an empty string")
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// get fetches the provided url and returns the response body.
func (c *BinanceClient) get(ctx context.Context, formedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", formedURL, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, formedURL)
	}

	return body, nil
}

// ParseKlines parses candlesticks from the provided kline json data. Each
// kline is a fixed-position array of open time, open, high, low, close,
// volume and close time.
func (c *BinanceClient) ParseKlines(data []gjson.Result, market string, timeframe shared.Timeframe) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		fields := data[idx].Array()
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed kline entry: expected at least 7 fields, got %d",
				len(fields))
		}

		var candle shared.Candlestick
		candle.OpenTime = time.UnixMilli(fields[0].Int())
		candle.Open = fields[1].Float()
		candle.High = fields[2].Float()
		candle.Low = fields[3].Float()
		candle.Close = fields[4].Float()
		candle.Volume = fields[5].Float()
		candle.CloseTime = time.UnixMilli(fields[6].Int())

		candle.Market = market
		candle.Timeframe = timeframe

		candles = append(candles, candle)
	}

	return candles, nil
}

// FetchCandles fetches the most recent candles for the provided market and
// timeframe.
func (c *BinanceClient) FetchCandles(ctx context.Context, market string, timeframe shared.Timeframe, limit int) ([]shared.Candlestick, error) {
	const klinesPath = "/api/v3/klines"

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("interval", timeframe.String())
	params.Add("limit", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, c.formURL(klinesPath, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetching %s candles for %s: %w", timeframe.String(), market, err)
	}

	return c.ParseKlines(gjson.ParseBytes(body).Array(), market, timeframe)
}

// FetchLatestPrice fetches the latest traded price for the provided market.
func (c *BinanceClient) FetchLatestPrice(ctx context.Context, market string) (float64, error) {
	const tickerPath = "/api/v3/ticker/price"

	params := url.Values{}
	params.Add("symbol", market)

	body, err := c.get(ctx, c.formURL(tickerPath, params.Encode()))
	if err != nil {
		return 0, fmt.Errorf("fetching latest price for %s: %w", market, err)
	}

	price := gjson.GetBytes(body, "price").Float()
	if price <= 0 {
		return 0, fmt.Errorf("no valid price in response for %s", market)
	}

	return price, nil
}
