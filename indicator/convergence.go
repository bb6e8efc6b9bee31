package indicator

// convergence returns the moving-average convergence triple for the provided
// closes: the line (fast average minus slow average), its smoothed signal and
// the histogram (line minus signal). The signal defaults to zero until enough
// line entries accumulate for its smoothing window.
func convergence(closes []float64, fastPeriod int, slowPeriod int, signalPeriod int) (float64, float64, float64) {
	if fastPeriod <= 0 || slowPeriod <= fastPeriod || len(closes) < slowPeriod {
		return 0, 0, 0
	}

	fastSeries := emaSeries(closes, fastPeriod)
	slowSeries := emaSeries(closes, slowPeriod)

	// Both series end at the last close; the fast one starts earlier.
	offset := slowPeriod - fastPeriod
	lineSeries := make([]float64, len(slowSeries))
	for idx := range slowSeries {
		lineSeries[idx] = fastSeries[idx+offset] - slowSeries[idx]
	}

	line := lastEntry(lineSeries)
	signal := lastEntry(emaSeries(lineSeries, signalPeriod))

	return line, signal, line - signal
}
