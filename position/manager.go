package position

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
)

// stopDistanceMultiplier scales the volatility range into a stop distance.
const stopDistanceMultiplier = 1.5

// ManagerConfig represents the trade lifecycle manager configuration.
type ManagerConfig struct {
	// InitialBalance is the starting cash balance of the simulated account.
	InitialBalance float64
	// Notify sends the provided message. Optional.
	Notify func(message string)
	// PersistClosedTrade persists the provided closed trade. Optional.
	PersistClosedTrade func(trade *Trade) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager owns the simulated trades and their ledger through the full
// lifecycle: sizing from the risk budget, protective level placement,
// closure detection and realized profit accounting.
type Manager struct {
	cfg       *ManagerConfig
	ledger    *Ledger
	trades    []*Trade
	tradesMtx sync.RWMutex
}

// NewManager initializes a new trade lifecycle manager.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		cfg:    cfg,
		ledger: NewLedger(cfg.InitialBalance),
		trades: []*Trade{},
	}
}

// OpenTrade opens a simulated trade for the provided signal, sized so the
// configured risk fraction of the cash balance is lost if the stop is hit.
// The stop distance derives from the volatility range, falling back to the
// configured default when it is unavailable; a zero stop distance skips the
// trade rather than dividing by zero.
func (m *Manager) OpenTrade(signal *shared.Signal, volatility float64, risk shared.RiskConfig) (*Trade, error) {
	if signal == nil {
		return nil, fmt.Errorf("signal cannot be nil")
	}

	if volatility <= 0 {
		volatility = risk.DefaultVolatility
	}

	stopDistance := stopDistanceMultiplier * volatility
	if stopDistance <= 0 {
		return nil, fmt.Errorf("invalid sizing for %s: stop distance must be positive", signal.Market)
	}

	cash, _ := m.ledger.Balances()
	riskAmount := cash * risk.RiskPerTradePercent / 100
	if riskAmount <= 0 {
		return nil, fmt.Errorf("invalid sizing for %s: no cash available to risk", signal.Market)
	}

	entry := signal.Price

	var stopLoss, takeProfit float64
	switch signal.Direction {
	case shared.Buy:
		stopLoss = entry - stopDistance
		takeProfit = entry + risk.RewardRiskRatio*stopDistance
	case shared.Sell:
		stopLoss = entry + stopDistance
		takeProfit = entry - risk.RewardRiskRatio*stopDistance
	default:
		return nil, fmt.Errorf("unknown direction for signal: %s", signal.Direction.String())
	}

	quantity := riskAmount / math.Abs(entry-stopLoss)

	trade := &Trade{
		ID:           uuid.New().String(),
		Market:       signal.Market,
		Timeframe:    signal.Timeframe,
		Direction:    signal.Direction,
		Quantity:     quantity,
		EntryPrice:   entry,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		Score:        signal.Score,
		CounterTrend: signal.CounterTrend,
		Status:       Open,
		OpenedOn:     time.Now(),
	}

	m.ledger.applyOpen(trade.Direction, entry, quantity)

	m.tradesMtx.Lock()
	m.trades = append(m.trades, trade)
	m.tradesMtx.Unlock()

	m.notify(fmt.Sprintf("Opened %s trade (%s) for %s @ %f, stop %f, target %f",
		trade.Direction.String(), trade.ID, trade.Market, entry, stopLoss, takeProfit))

	return trade, nil
}

// CheckClosures compares the provided latest price against the protective and
// target levels of every open trade, closing the ones that are hit. A closed
// trade never reopens and its closure fields never change on later passes.
// A non-positive price makes the check a no-op.
func (m *Manager) CheckClosures(latestPrice float64) []*Trade {
	if latestPrice <= 0 {
		return nil
	}

	m.tradesMtx.Lock()
	defer m.tradesMtx.Unlock()

	var closed []*Trade
	for _, trade := range m.trades {
		if trade.Status != Open {
			continue
		}

		var reason CloseReason
		switch trade.Direction {
		case shared.Buy:
			switch {
			case latestPrice >= trade.TakeProfit:
				reason = TargetHit
			case latestPrice <= trade.StopLoss:
				reason = StopHit
			default:
				continue
			}
		case shared.Sell:
			switch {
			case latestPrice <= trade.TakeProfit:
				reason = TargetHit
			case latestPrice >= trade.StopLoss:
				reason = StopHit
			default:
				continue
			}
		}

		m.closeTrade(trade, latestPrice, reason)
		closed = append(closed, trade)
	}

	return closed
}

// closeTrade transitions the provided trade from open to closed, setting all
// closure fields together. Must be called with the trades lock held.
func (m *Manager) closeTrade(trade *Trade, exitPrice float64, reason CloseReason) {
	switch trade.Direction {
	case shared.Buy:
		trade.PNL = (exitPrice - trade.EntryPrice) * trade.Quantity
	case shared.Sell:
		trade.PNL = (trade.EntryPrice - exitPrice) * trade.Quantity
	}

	trade.ExitPrice = exitPrice
	trade.ClosedOn = time.Now()
	trade.CloseReason = reason
	trade.Status = Closed

	m.ledger.applyClose(trade.Direction, exitPrice, trade.Quantity)

	if m.cfg.PersistClosedTrade != nil {
		err := m.cfg.PersistClosedTrade(trade)
		if err != nil {
			m.cfg.Logger.Error().Msgf("persisting closed trade %s: %v", trade.ID, err)
		}
	}

	m.notify(fmt.Sprintf("Closed %s trade (%s) for %s @ %f (%s), profit %f",
		trade.Direction.String(), trade.ID, trade.Market, exitPrice, reason, trade.PNL))
}

// notify relays the provided message when a notifier is configured.
func (m *Manager) notify(message string) {
	if m.cfg.Notify != nil {
		m.cfg.Notify(message)
	}
}

// Trades returns a copy of the full trade history, open and closed.
func (m *Manager) Trades() []Trade {
	m.tradesMtx.RLock()
	defer m.tradesMtx.RUnlock()

	set := make([]Trade, len(m.trades))
	for idx := range m.trades {
		set[idx] = *m.trades[idx]
	}

	return set
}

// OpenTradeCount returns the number of currently open trades.
func (m *Manager) OpenTradeCount() int {
	m.tradesMtx.RLock()
	defer m.tradesMtx.RUnlock()

	var count int
	for _, trade := range m.trades {
		if trade.Status == Open {
			count++
		}
	}

	return count
}

// Balances returns the current cash and asset balances of the ledger.
func (m *Manager) Balances() (float64, float64) {
	return m.ledger.Balances()
}

// Stats recomputes the performance statistics wholesale from the closed
// trades, sorted by close time ascending.
func (m *Manager) Stats() PerformanceStats {
	m.tradesMtx.RLock()
	closed := make([]Trade, 0, len(m.trades))
	for _, trade := range m.trades {
		if trade.Status == Closed {
			closed = append(closed, *trade)
		}
	}
	m.tradesMtx.RUnlock()

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ClosedOn.Before(closed[j].ClosedOn)
	})

	return ComputeStats(closed, m.cfg.InitialBalance)
}
