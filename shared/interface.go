package shared

import "context"

// MarketFetcher defines the requirements for fetching market data from a venue.
type MarketFetcher interface {
	// FetchCandles fetches the most recent candles for the provided market and timeframe.
	FetchCandles(ctx context.Context, market string, timeframe Timeframe, limit int) ([]Candlestick, error)
	// FetchLatestPrice fetches the latest traded price for the provided market.
	FetchLatestPrice(ctx context.Context, market string) (float64, error)
}

// LiveStreamer defines the requirements for subscribing to live candle updates.
type LiveStreamer interface {
	// Subscribe streams live candle updates for the provided market and timeframe
	// to the update callback. The returned function cancels the subscription.
	Subscribe(market string, timeframe Timeframe, onUpdate func(Candlestick)) (func(), error)
}
