package position

// PerformanceStats represents derived performance statistics over the closed
// trade ledger. They are recomputed wholesale every cycle, never updated
// incrementally, to guarantee consistency.
type PerformanceStats struct {
	TotalTrades int
	WinRate     float64
	AvgWin      float64
	AvgLoss     float64
	Expectancy  float64
	NetProfit   float64
	BestTrade   float64
	WorstTrade  float64
	MaxDrawdown float64
}

// ComputeStats derives performance statistics from the provided closed
// trades, which must be sorted by close time ascending for the drawdown walk.
// Empty subsets report zero rather than propagating division artifacts.
func ComputeStats(closed []Trade, initialBalance float64) PerformanceStats {
	stats := PerformanceStats{TotalTrades: len(closed)}
	if len(closed) == 0 {
		return stats
	}

	var winCount, lossCount int
	var winSum, lossSum float64

	stats.BestTrade = closed[0].PNL
	stats.WorstTrade = closed[0].PNL

	for idx := range closed {
		pnl := closed[idx].PNL
		stats.NetProfit += pnl

		switch {
		case pnl > 0:
			winCount++
			winSum += pnl
		case pnl < 0:
			lossCount++
			lossSum += pnl
		}

		if pnl > stats.BestTrade {
			stats.BestTrade = pnl
		}
		if pnl < stats.WorstTrade {
			stats.WorstTrade = pnl
		}
	}

	stats.WinRate = float64(winCount) / float64(len(closed)) * 100
	if winCount > 0 {
		stats.AvgWin = winSum / float64(winCount)
	}
	if lossCount > 0 {
		stats.AvgLoss = lossSum / float64(lossCount)
	}

	lossMagnitude := -stats.AvgLoss
	stats.Expectancy = stats.WinRate/100*stats.AvgWin - (1-stats.WinRate/100)*lossMagnitude

	// Walk the closed trades in close order, tracking the running equity peak.
	equity := initialBalance
	peak := initialBalance
	for idx := range closed {
		equity += closed[idx].PNL
		if equity > peak {
			peak = equity
		}

		if peak > 0 {
			drawdown := (peak - equity) / peak * 100
			if drawdown > stats.MaxDrawdown {
				stats.MaxDrawdown = drawdown
			}
		}
	}

	return stats
}
