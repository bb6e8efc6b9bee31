package shared

// Direction represents market direction.
type Direction int

const (
	Buy Direction = iota
	Sell
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Condition represents a met entry condition backing a signal.
type Condition int

const (
	OversoldMomentum Condition = iota
	OverboughtMomentum
	StochasticCross
	TrendAlignment
	ConvergenceMomentum
	StrongVolume
	FibonacciRetracement
)

// String stringifies the provided condition.
func (c Condition) String() string {
	switch c {
	case OversoldMomentum:
		return "oversold momentum"
	case OverboughtMomentum:
		return "overbought momentum"
	case StochasticCross:
		return "stochastic cross"
	case TrendAlignment:
		return "trend alignment"
	case ConvergenceMomentum:
		return "convergence momentum"
	case StrongVolume:
		return "strong volume"
	case FibonacciRetracement:
		return "fibonacci retracement"
	default:
		return "unknown"
	}
}
