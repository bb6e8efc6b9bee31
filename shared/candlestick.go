package shared

import "time"

// Candlestick represents a unit OHLCV candlestick for a market.
type Candlestick struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	// OpenTime uniquely identifies a candlestick within its timeframe. A live
	// update carrying the open time of the most recent stored candle replaces
	// it in place rather than appending a new one.
	OpenTime  time.Time
	CloseTime time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}
