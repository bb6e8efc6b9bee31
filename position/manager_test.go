package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ksered/cadence/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func near(got float64, want float64) bool {
	return math.Abs(got-want) < 1e-6
}

func testRiskConfig() shared.RiskConfig {
	return shared.RiskConfig{
		RiskPerTradePercent: 1,
		RewardRiskRatio:     2.5,
		DefaultVolatility:   100,
	}
}

func testSignal(direction shared.Direction, price float64) *shared.Signal {
	signal := shared.NewSignal("BTCUSDT", shared.FiveMinute, direction, price,
		[]shared.Condition{shared.OversoldMomentum, shared.StochasticCross,
			shared.TrendAlignment, shared.StrongVolume}, false, time.Now())
	return &signal
}

func newTestManager(notify func(message string)) *Manager {
	return NewManager(&ManagerConfig{
		InitialBalance: 10000,
		Notify:         notify,
		Logger:         &log.Logger,
	})
}

func TestOpenTrade(t *testing.T) {
	notifications := make(chan string, 4)
	manager := newTestManager(func(message string) {
		notifications <- message
	})

	// Ensure a buy trade is sized so the configured risk fraction is lost at
	// the stop: a 10,000 balance risking 1% against a 150 point stop distance
	// buys 100/150 units.
	trade, err := manager.OpenTrade(testSignal(shared.Buy, 50000), 100, testRiskConfig())
	assert.NoError(t, err)
	assert.Equal(t, trade.Status, Open)
	assert.Equal(t, trade.StopLoss, float64(49850))
	assert.Equal(t, trade.TakeProfit, float64(50375))
	assert.True(t, near(trade.Quantity, 100.0/150))
	assert.Equal(t, trade.Score, uint32(4))
	assert.Equal(t, manager.OpenTradeCount(), 1)

	// Ensure the open was announced.
	assert.Equal(t, len(notifications), 1)
	<-notifications

	// Ensure opening debits cash and credits the asset.
	cash, asset := manager.Balances()
	assert.True(t, near(cash, 10000-50000*trade.Quantity))
	assert.True(t, near(asset, trade.Quantity))

	// Ensure a price between the protective levels closes nothing.
	closed := manager.CheckClosures(50100)
	assert.Equal(t, len(closed), 0)

	// Ensure hitting the target closes the trade with the full reward.
	closed = manager.CheckClosures(50375)
	assert.Equal(t, len(closed), 1)
	assert.Equal(t, closed[0].Status, Closed)
	assert.Equal(t, closed[0].CloseReason, TargetHit)
	assert.Equal(t, closed[0].ExitPrice, float64(50375))
	assert.True(t, near(closed[0].PNL, 250))
	assert.Equal(t, manager.OpenTradeCount(), 0)
	assert.Equal(t, len(notifications), 1)

	// Ensure the cash balance nets out to the initial balance plus the
	// realized profit, with the asset position flat.
	cash, asset = manager.Balances()
	assert.True(t, near(cash, 10250))
	assert.True(t, near(asset, 0))

	// Ensure a closed trade never reopens or changes on later passes.
	closedOn := closed[0].ClosedOn
	again := manager.CheckClosures(49000)
	assert.Equal(t, len(again), 0)

	trades := manager.Trades()
	assert.Equal(t, len(trades), 1)
	assert.Equal(t, trades[0].Status, Closed)
	assert.Equal(t, trades[0].ExitPrice, float64(50375))
	assert.Equal(t, trades[0].ClosedOn, closedOn)
}

func TestOpenTradeSell(t *testing.T) {
	manager := newTestManager(nil)

	// Ensure a sell trade mirrors the protective levels below and above the
	// entry.
	trade, err := manager.OpenTrade(testSignal(shared.Sell, 50000), 100, testRiskConfig())
	assert.NoError(t, err)
	assert.Equal(t, trade.StopLoss, float64(50150))
	assert.Equal(t, trade.TakeProfit, float64(49625))

	// Ensure opening a sell credits cash and debits the asset.
	cash, asset := manager.Balances()
	assert.True(t, near(cash, 10000+50000*trade.Quantity))
	assert.True(t, near(asset, -trade.Quantity))

	// Ensure a falling price hits the sell target and the ledger mirrors the
	// open, leaving cash at the initial balance plus the realized profit.
	closed := manager.CheckClosures(49625)
	assert.Equal(t, len(closed), 1)
	assert.Equal(t, closed[0].CloseReason, TargetHit)
	assert.True(t, near(closed[0].PNL, 250))

	cash, asset = manager.Balances()
	assert.True(t, near(cash, 10250))
	assert.True(t, near(asset, 0))
}

func TestOpenTradeStopHit(t *testing.T) {
	manager := newTestManager(nil)

	_, err := manager.OpenTrade(testSignal(shared.Buy, 50000), 100, testRiskConfig())
	assert.NoError(t, err)

	// Ensure hitting the stop loses exactly the risked amount.
	closed := manager.CheckClosures(49850)
	assert.Equal(t, len(closed), 1)
	assert.Equal(t, closed[0].CloseReason, StopHit)
	assert.True(t, near(closed[0].PNL, -100))

	cash, asset := manager.Balances()
	assert.True(t, near(cash, 9900))
	assert.True(t, near(asset, 0))
}

func TestOpenTradeSizing(t *testing.T) {
	manager := newTestManager(nil)

	// Ensure a missing volatility range falls back to the configured default.
	trade, err := manager.OpenTrade(testSignal(shared.Buy, 50000), 0, testRiskConfig())
	assert.NoError(t, err)
	assert.Equal(t, trade.StopLoss, float64(49850))

	// Ensure a nil signal is rejected.
	_, err = manager.OpenTrade(nil, 100, testRiskConfig())
	assert.Error(t, err)

	// Ensure a zero stop distance skips the trade.
	risk := testRiskConfig()
	risk.DefaultVolatility = 0
	_, err = manager.OpenTrade(testSignal(shared.Buy, 50000), 0, risk)
	assert.Error(t, err)

	// Ensure an exhausted cash balance skips the trade.
	broke := NewManager(&ManagerConfig{
		InitialBalance: 0,
		Logger:         &log.Logger,
	})
	_, err = broke.OpenTrade(testSignal(shared.Buy, 50000), 100, testRiskConfig())
	assert.Error(t, err)

	// Ensure a non-positive price makes the closure check a no-op.
	assert.Nil(t, manager.CheckClosures(0))
	assert.Equal(t, manager.OpenTradeCount(), 1)
}

func TestPersistClosedTrade(t *testing.T) {
	persisted := make([]*Trade, 0, 1)
	manager := NewManager(&ManagerConfig{
		InitialBalance: 10000,
		PersistClosedTrade: func(trade *Trade) error {
			persisted = append(persisted, trade)
			return nil
		},
		Logger: &log.Logger,
	})

	_, err := manager.OpenTrade(testSignal(shared.Buy, 50000), 100, testRiskConfig())
	assert.NoError(t, err)

	// Ensure closed trades reach the persistence hook exactly once.
	manager.CheckClosures(50375)
	manager.CheckClosures(50375)
	assert.Equal(t, len(persisted), 1)
	assert.Equal(t, persisted[0].CloseReason, TargetHit)

	// Ensure persistence failures do not block the closure.
	failing := NewManager(&ManagerConfig{
		InitialBalance: 10000,
		PersistClosedTrade: func(trade *Trade) error {
			return errors.New("unreachable store")
		},
		Logger: &log.Logger,
	})

	_, err = failing.OpenTrade(testSignal(shared.Buy, 50000), 100, testRiskConfig())
	assert.NoError(t, err)

	closed := failing.CheckClosures(49850)
	assert.Equal(t, len(closed), 1)
	assert.Equal(t, failing.OpenTradeCount(), 0)
}

func TestManagerStats(t *testing.T) {
	manager := newTestManager(nil)

	_, err := manager.OpenTrade(testSignal(shared.Buy, 1000), 100, testRiskConfig())
	assert.NoError(t, err)
	_, err = manager.OpenTrade(testSignal(shared.Sell, 1000), 100, testRiskConfig())
	assert.NoError(t, err)

	// Ensure stats only cover closed trades.
	stats := manager.Stats()
	assert.Equal(t, stats.TotalTrades, 0)

	// A rising price hits the buy target and the sell stop.
	closed := manager.CheckClosures(1375)
	assert.Equal(t, len(closed), 2)

	stats = manager.Stats()
	assert.Equal(t, stats.TotalTrades, 2)
	assert.Equal(t, stats.WinRate, float64(50))
	assert.True(t, stats.NetProfit != 0)
}
