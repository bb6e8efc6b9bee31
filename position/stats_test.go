package position

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

// closedTrade creates a closed trade with the provided realized profit.
func closedTrade(pnl float64, closedOn time.Time) Trade {
	return Trade{
		Market:   "BTCUSDT",
		Status:   Closed,
		PNL:      pnl,
		ClosedOn: closedOn,
	}
}

func TestComputeStats(t *testing.T) {
	// Ensure an empty set reports zero across the board.
	stats := ComputeStats(nil, 10000)
	assert.Equal(t, stats, PerformanceStats{})

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	closed := []Trade{
		closedTrade(100, base),
		closedTrade(-50, base.Add(time.Hour)),
		closedTrade(200, base.Add(2*time.Hour)),
	}

	stats = ComputeStats(closed, 10000)
	assert.Equal(t, stats.TotalTrades, 3)
	assert.True(t, near(stats.WinRate, 200.0/3))
	assert.Equal(t, stats.AvgWin, float64(150))
	assert.Equal(t, stats.AvgLoss, float64(-50))
	assert.Equal(t, stats.NetProfit, float64(250))
	assert.Equal(t, stats.BestTrade, float64(200))
	assert.Equal(t, stats.WorstTrade, float64(-50))

	// Expectancy weighs the average win and loss by their frequency.
	assert.True(t, near(stats.Expectancy, 200.0/300*150-100.0/300*50))

	// The only equity dip is the 50 point loss against the 10,100 peak.
	assert.True(t, near(stats.MaxDrawdown, 50.0/10100*100))
}

func TestComputeStatsOneSided(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// Ensure an all-winning set reports no loss average and no drawdown.
	stats := ComputeStats([]Trade{closedTrade(100, base), closedTrade(50, base.Add(time.Hour))}, 10000)
	assert.Equal(t, stats.WinRate, float64(100))
	assert.Equal(t, stats.AvgWin, float64(75))
	assert.Equal(t, stats.AvgLoss, float64(0))
	assert.Equal(t, stats.Expectancy, float64(75))
	assert.Equal(t, stats.MaxDrawdown, float64(0))
	assert.Equal(t, stats.WorstTrade, float64(50))

	// Ensure an all-losing set reports no win average and a bounded drawdown.
	stats = ComputeStats([]Trade{closedTrade(-100, base), closedTrade(-50, base.Add(time.Hour))}, 10000)
	assert.Equal(t, stats.WinRate, float64(0))
	assert.Equal(t, stats.AvgWin, float64(0))
	assert.Equal(t, stats.AvgLoss, float64(-75))
	assert.Equal(t, stats.Expectancy, float64(-75))
	assert.Equal(t, stats.BestTrade, float64(-50))
	assert.True(t, stats.MaxDrawdown > 0 && stats.MaxDrawdown <= 100)
	assert.True(t, near(stats.MaxDrawdown, 1.5))
}

func TestComputeStatsBreakEven(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// Ensure break-even trades count toward the total without skewing the
	// win and loss averages.
	stats := ComputeStats([]Trade{closedTrade(0, base), closedTrade(100, base.Add(time.Hour))}, 10000)
	assert.Equal(t, stats.TotalTrades, 2)
	assert.Equal(t, stats.WinRate, float64(50))
	assert.Equal(t, stats.AvgWin, float64(100))
	assert.Equal(t, stats.AvgLoss, float64(0))
	assert.Equal(t, stats.BestTrade, float64(100))
	assert.Equal(t, stats.WorstTrade, float64(0))
}
