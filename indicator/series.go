package indicator

// smaSeries returns the simple moving average series of the provided values.
// Entry i of the result corresponds to values[i+period-1].
func smaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	series := make([]float64, 0, len(values)-period+1)

	var sum float64
	for idx := range values {
		sum += values[idx]
		if idx >= period {
			sum -= values[idx-period]
		}
		if idx >= period-1 {
			series = append(series, sum/float64(period))
		}
	}

	return series
}

// emaSeries returns the exponential moving average series of the provided
// values, seeded with the simple average of the first period entries. Entry i
// of the result corresponds to values[i+period-1].
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	series := make([]float64, 0, len(values)-period+1)

	var seed float64
	for idx := range period {
		seed += values[idx]
	}

	ema := seed / float64(period)
	series = append(series, ema)

	multiplier := 2 / float64(period+1)
	for idx := period; idx < len(values); idx++ {
		ema = (values[idx]-ema)*multiplier + ema
		series = append(series, ema)
	}

	return series
}

// lastEntry returns the last entry of the provided series, defaulting to zero
// when the series is empty.
func lastEntry(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}

	return series[len(series)-1]
}
