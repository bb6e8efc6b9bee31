package indicator

import "math"

// averageTrueRange returns the average true range of the provided series using
// Wilder smoothing over the provided period. It returns zero when there is not
// enough data to establish a range.
func averageTrueRange(highs []float64, lows []float64, closes []float64, period int) float64 {
	if period <= 0 || len(closes) <= period {
		return 0
	}

	trueRanges := make([]float64, 0, len(closes)-1)
	for idx := 1; idx < len(closes); idx++ {
		highLow := highs[idx] - lows[idx]
		highClose := math.Abs(highs[idx] - closes[idx-1])
		lowClose := math.Abs(lows[idx] - closes[idx-1])

		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highClose, lowClose)))
	}

	var seed float64
	for idx := range period {
		seed += trueRanges[idx]
	}

	atr := seed / float64(period)
	for idx := period; idx < len(trueRanges); idx++ {
		atr = (atr*float64(period-1) + trueRanges[idx]) / float64(period)
	}

	return atr
}
