package indicator

// relativeStrengthIndex returns the bounded 0-100 momentum oscillator value
// for the provided closes, using Wilder smoothing over the provided period.
func relativeStrengthIndex(closes []float64, period int) float64 {
	if period <= 0 || len(closes) <= period {
		return 0
	}

	var gainSum, lossSum float64
	for idx := 1; idx <= period; idx++ {
		diff := closes[idx] - closes[idx-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum -= diff
		}
	}

	averageGain := gainSum / float64(period)
	averageLoss := lossSum / float64(period)

	for idx := period + 1; idx < len(closes); idx++ {
		diff := closes[idx] - closes[idx-1]

		var gain, loss float64
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}

		averageGain = (averageGain*float64(period-1) + gain) / float64(period)
		averageLoss = (averageLoss*float64(period-1) + loss) / float64(period)
	}

	if averageLoss == 0 {
		return 100
	}

	relativeStrength := averageGain / averageLoss
	return 100 - (100 / (1 + relativeStrength))
}

// stochastic returns the %K and %D oscillator values for the provided series.
// %K compares the last close to the high/low range of the lookback period and
// %D smooths %K with a simple average over the signal smoothing window.
func stochastic(highs []float64, lows []float64, closes []float64, period int, smoothing int) (float64, float64) {
	if period <= 0 || smoothing <= 0 || len(closes) < period {
		return 0, 0
	}

	kSeries := make([]float64, 0, len(closes)-period+1)
	for idx := period - 1; idx < len(closes); idx++ {
		highest := highs[idx]
		lowest := lows[idx]
		for j := idx - period + 1; j < idx; j++ {
			if highs[j] > highest {
				highest = highs[j]
			}
			if lows[j] < lowest {
				lowest = lows[j]
			}
		}

		var k float64
		if highest > lowest {
			k = (closes[idx] - lowest) / (highest - lowest) * 100
		}

		kSeries = append(kSeries, k)
	}

	window := smoothing
	if window > len(kSeries) {
		window = len(kSeries)
	}

	var dSum float64
	for idx := len(kSeries) - window; idx < len(kSeries); idx++ {
		dSum += kSeries[idx]
	}

	return lastEntry(kSeries), dSum / float64(window)
}
