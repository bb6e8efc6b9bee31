package shared

import (
	"fmt"
	"time"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	FifteenMinute
	OneHour
	OneDay
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case FifteenMinute:
		return "15m"
	case OneHour:
		return "1h"
	case OneDay:
		return "1d"
	default:
		return "unknown"
	}
}

// Duration returns the bucket duration of the provided timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case FifteenMinute:
		return time.Minute * 15
	case OneHour:
		return time.Hour
	case OneDay:
		return time.Hour * 24
	default:
		return 0
	}
}

// ParseTimeframe parses a timeframe from its interval string.
func ParseTimeframe(interval string) (Timeframe, error) {
	switch interval {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "15m":
		return FifteenMinute, nil
	case "1h":
		return OneHour, nil
	case "1d":
		return OneDay, nil
	default:
		return 0, fmt.Errorf("unknown timeframe interval: %s", interval)
	}
}
