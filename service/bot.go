package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ksered/cadence/engine"
	"github.com/ksered/cadence/indicator"
	"github.com/ksered/cadence/market"
	"github.com/ksered/cadence/metrics"
	"github.com/ksered/cadence/position"
	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// CycleInterval is the cadence of the recurring evaluation cycle.
	CycleInterval = time.Second * 30
	// cycleTimeout bounds the data-fetch portion of a cycle.
	cycleTimeout = time.Second * 20

	// Candle fetch limits per timeframe role.
	mainCandleLimit   = 100
	hourlyCandleLimit = 50
	dailyCandleLimit  = 30

	// maxEvents is the maximum number of retained bot event messages.
	maxEvents = 20
)

// BotStatus represents the run status of the bot.
type BotStatus int

const (
	Stopped BotStatus = iota
	Running
)

// String stringifies the provided bot status.
func (s BotStatus) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// BotConfig represents the bot service configuration.
type BotConfig struct {
	// Market is the initially traded market.
	Market string
	// Timeframe is the initial trading timeframe.
	Timeframe shared.Timeframe
	// InitialBalance is the starting cash balance of the simulated account.
	InitialBalance float64
	// Risk represents the initial risk parameters.
	Risk shared.RiskConfig
	// Indicators represents the initial indicator period parameters.
	Indicators indicator.Config
	// Fetcher represents the venue market data fetcher.
	Fetcher shared.MarketFetcher
	// Streamer represents the venue live candle streamer. Optional.
	Streamer shared.LiveStreamer
	// PersistClosedTrade persists the provided closed trade. Optional.
	PersistClosedTrade func(trade *position.Trade) error
	// Notify sends the provided message. Optional.
	Notify func(message string)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *BotConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.InitialBalance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial balance must be positive, got %v",
			cfg.InitialBalance))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("market fetcher cannot be nil"))
	}
	if err := cfg.Risk.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := cfg.Indicators.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// snapshotSet holds the most recent indicator snapshots per timeframe role.
type snapshotSet struct {
	main   indicator.Snapshot
	hourly indicator.Snapshot
	daily  indicator.Snapshot
}

// Bot drives the evaluation cycle: refresh candles, compute indicators across
// timeframes, evaluate a signal, manage trade lifecycles and recompute
// performance statistics. All shared state funnels through the candle store
// and trade manager locks; the bot itself enforces at most one cycle in
// flight.
type Bot struct {
	cfg          *BotConfig
	evaluator    *engine.Evaluator
	tradeManager *position.Manager
	metrics      *metrics.Metrics

	stateMtx    sync.RWMutex
	status      BotStatus
	tradedPair  string
	timeframe   shared.Timeframe
	risk        shared.RiskConfig
	indicators  indicator.Config
	store       *market.Store
	scheduler   gocron.Scheduler
	unsubscribe func()

	cycleInFlight atomic.Bool
	snapshots     atomic.Pointer[snapshotSet]

	events    []string
	eventsMtx sync.RWMutex
}

// NewBot initializes a new bot service.
func NewBot(cfg *BotConfig) (*Bot, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating bot config: %w", err)
	}

	bot := &Bot{
		cfg:        cfg,
		metrics:    metrics.New(),
		tradedPair: cfg.Market,
		timeframe:  cfg.Timeframe,
		risk:       cfg.Risk,
		indicators: cfg.Indicators,
	}

	evaluatorLogger := cfg.Logger.With().Str("component", "evaluator").Logger()
	bot.evaluator = engine.NewEvaluator(&engine.EvaluatorConfig{
		Logger: &evaluatorLogger,
	})

	tradeLogger := cfg.Logger.With().Str("component", "trademanager").Logger()
	bot.tradeManager = position.NewManager(&position.ManagerConfig{
		InitialBalance:     cfg.InitialBalance,
		Notify:             bot.recordEvent,
		PersistClosedTrade: cfg.PersistClosedTrade,
		Logger:             &tradeLogger,
	})

	bot.store, err = bot.newStore(cfg.Market, cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	return bot, nil
}

// newStore builds a candle store covering the trading timeframe and the two
// confirmation timeframes.
func (b *Bot) newStore(tradedPair string, timeframe shared.Timeframe) (*market.Store, error) {
	timeframes := []shared.Timeframe{timeframe}
	if timeframe != shared.OneHour {
		timeframes = append(timeframes, shared.OneHour)
	}
	if timeframe != shared.OneDay {
		timeframes = append(timeframes, shared.OneDay)
	}

	storeLogger := b.cfg.Logger.With().Str("component", "candlestore").Logger()
	return market.NewStore(&market.StoreConfig{
		Market:     tradedPair,
		Timeframes: timeframes,
		Logger:     &storeLogger,
	})
}

// recordEvent appends the provided message to the bounded event log and
// forwards it to the configured notifier.
func (b *Bot) recordEvent(message string) {
	b.eventsMtx.Lock()
	b.events = append(b.events, message)
	if len(b.events) > maxEvents {
		b.events = b.events[len(b.events)-maxEvents:]
	}
	b.eventsMtx.Unlock()

	if b.cfg.Notify != nil {
		b.cfg.Notify(message)
	}
}

// subscribeLive rebuilds the live candle subscription for the provided market
// and timeframe. Must be called with the state lock held.
func (b *Bot) subscribeLive(tradedPair string, timeframe shared.Timeframe) error {
	if b.cfg.Streamer == nil {
		return nil
	}

	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	store := b.store
	unsubscribe, err := b.cfg.Streamer.Subscribe(tradedPair, timeframe, func(candle shared.Candlestick) {
		store.ApplyIncrement(candle)
	})
	if err != nil {
		return fmt.Errorf("subscribing to live candles for %s: %w", tradedPair, err)
	}

	b.unsubscribe = unsubscribe
	return nil
}

// Start transitions the bot from stopped to running, triggering an immediate
// cycle and a fixed-interval recurring one.
func (b *Bot) Start() error {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if b.status == Running {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating cycle scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(CycleInterval),
		gocron.NewTask(b.RunCycle),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("creating cycle job: %w", err)
	}

	err = b.subscribeLive(b.tradedPair, b.timeframe)
	if err != nil {
		return err
	}

	b.scheduler = scheduler
	scheduler.Start()
	b.status = Running

	b.cfg.Logger.Info().Msgf("bot started for %s (%s)", b.tradedPair, b.timeframe.String())
	return nil
}

// Stop transitions the bot from running to stopped, letting an in-flight
// cycle finish before no further cycles are scheduled.
func (b *Bot) Stop() error {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if b.status == Stopped {
		return nil
	}

	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	err := b.scheduler.Shutdown()
	if err != nil {
		return fmt.Errorf("shutting down cycle scheduler: %w", err)
	}

	b.scheduler = nil
	b.status = Stopped

	b.cfg.Logger.Info().Msgf("bot stopped for %s", b.tradedPair)
	return nil
}

// SetMarket changes the traded market. While running this tears down and
// rebuilds the live subscription and candle store but keeps the ledger and
// trade history intact.
func (b *Bot) SetMarket(tradedPair string) error {
	if tradedPair == "" {
		return fmt.Errorf("market cannot be an empty string")
	}

	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if tradedPair == b.tradedPair {
		return nil
	}

	store, err := b.newStore(tradedPair, b.timeframe)
	if err != nil {
		return err
	}

	b.tradedPair = tradedPair
	b.store = store

	if b.status == Running {
		return b.subscribeLive(b.tradedPair, b.timeframe)
	}

	return nil
}

// SetTimeframe changes the trading timeframe, rebuilding the candle store and
// live subscription like a market change does.
func (b *Bot) SetTimeframe(timeframe shared.Timeframe) error {
	b.stateMtx.Lock()
	defer b.stateMtx.Unlock()

	if timeframe == b.timeframe {
		return nil
	}

	store, err := b.newStore(b.tradedPair, timeframe)
	if err != nil {
		return err
	}

	b.timeframe = timeframe
	b.store = store

	if b.status == Running {
		return b.subscribeLive(b.tradedPair, b.timeframe)
	}

	return nil
}

// UpdateRiskConfig swaps in the provided risk parameters. An invalid config
// is rejected and the previous valid one stays active.
func (b *Bot) UpdateRiskConfig(cfg shared.RiskConfig) error {
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("rejecting risk config update: %w", err)
	}

	b.stateMtx.Lock()
	b.risk = cfg
	b.stateMtx.Unlock()

	return nil
}

// UpdateIndicatorConfig swaps in the provided indicator period parameters.
// An invalid config is rejected and the previous valid one stays active.
func (b *Bot) UpdateIndicatorConfig(cfg indicator.Config) error {
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("rejecting indicator config update: %w", err)
	}

	b.stateMtx.Lock()
	b.indicators = cfg
	b.stateMtx.Unlock()

	return nil
}

// RunCycle performs a full evaluation cycle: refresh candles, compute
// indicators for all three timeframes, evaluate a signal, open a trade if
// signaled, check closures against the latest price and recompute the
// performance statistics. Overlapping triggers are collapsed: if a cycle is
// already in flight the call is skipped, never run concurrently.
func (b *Bot) RunCycle() {
	if !b.cycleInFlight.CompareAndSwap(false, true) {
		b.metrics.CyclesSkipped.Inc()
		b.cfg.Logger.Warn().Msg("cycle already in flight, skipping trigger")
		return
	}
	defer b.cycleInFlight.Store(false)

	b.stateMtx.RLock()
	tradedPair := b.tradedPair
	timeframe := b.timeframe
	risk := b.risk
	indicatorCfg := b.indicators
	store := b.store
	b.stateMtx.RUnlock()

	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	// The fetch boundary is the only step of the cycle that suspends; a
	// failure here degrades to a skipped cycle, retried on the next tick.
	err := b.refreshCandles(ctx, store, tradedPair, timeframe)
	if err != nil {
		b.metrics.FetchErrors.Inc()
		b.metrics.CyclesSkipped.Inc()
		b.cfg.Logger.Error().Msgf("skipping cycle for %s: %v", tradedPair, err)
		return
	}

	set := &snapshotSet{
		main:   indicator.Compute(tradedPair, timeframe, store.Snapshot(timeframe), indicatorCfg),
		hourly: indicator.Compute(tradedPair, shared.OneHour, store.Snapshot(shared.OneHour), indicatorCfg),
		daily:  indicator.Compute(tradedPair, shared.OneDay, store.Snapshot(shared.OneDay), indicatorCfg),
	}
	b.snapshots.Store(set)

	mainCandles := store.Snapshot(timeframe)

	var last *shared.Candlestick
	if len(mainCandles) > 0 {
		last = &mainCandles[len(mainCandles)-1]
	}

	signal := b.evaluator.Evaluate(&set.main, &set.hourly, &set.daily, last)
	if signal != nil {
		b.metrics.SignalsTotal.WithLabelValues(signal.Direction.String()).Inc()
		b.recordEvent(fmt.Sprintf("%s signal for %s @ %f (score %d/6, %s close)",
			signal.Direction.String(), signal.Market, signal.Price, signal.Score,
			last.FetchSentiment().String()))

		_, err := b.tradeManager.OpenTrade(signal, set.main.ATR, risk)
		if err != nil {
			b.cfg.Logger.Warn().Msgf("skipping trade for %s: %v", tradedPair, err)
		} else {
			b.metrics.TradesOpened.Inc()
		}
	}

	b.checkClosures(ctx, store, tradedPair, timeframe)
	b.metrics.OpenTrades.Set(float64(b.tradeManager.OpenTradeCount()))

	b.metrics.CyclesTotal.Inc()
	b.metrics.CycleDuration.Observe(time.Since(started).Seconds())
}

// refreshCandles batch fetches the trading and confirmation series into the
// candle store.
func (b *Bot) refreshCandles(ctx context.Context, store *market.Store, tradedPair string, timeframe shared.Timeframe) error {
	fetches := []struct {
		timeframe shared.Timeframe
		limit     int
	}{
		{timeframe, mainCandleLimit},
		{shared.OneHour, hourlyCandleLimit},
		{shared.OneDay, dailyCandleLimit},
	}

	// A trading timeframe matching a confirmation timeframe shares one
	// series; fetch it once with the trading limit, which is the largest.
	fetched := make(map[shared.Timeframe]bool, len(fetches))

	for _, fetch := range fetches {
		if fetched[fetch.timeframe] {
			continue
		}
		fetched[fetch.timeframe] = true

		candles, err := b.cfg.Fetcher.FetchCandles(ctx, tradedPair, fetch.timeframe, fetch.limit)
		if err != nil {
			return fmt.Errorf("fetching %s candles: %w", fetch.timeframe.String(), err)
		}

		err = store.ApplyBatch(fetch.timeframe, candles)
		if err != nil {
			return fmt.Errorf("applying %s batch: %w", fetch.timeframe.String(), err)
		}
	}

	return nil
}

// checkClosures resolves the latest known price and runs the closure check
// with it. Without a price the check is a no-op.
func (b *Bot) checkClosures(ctx context.Context, store *market.Store, tradedPair string, timeframe shared.Timeframe) {
	price, err := b.cfg.Fetcher.FetchLatestPrice(ctx, tradedPair)
	if err != nil {
		b.cfg.Logger.Warn().Msgf("fetching latest price for %s: %v", tradedPair, err)

		var ok bool
		price, ok = store.LastClose(timeframe)
		if !ok {
			return
		}
	}

	closed := b.tradeManager.CheckClosures(price)
	for _, trade := range closed {
		b.metrics.TradesClosed.WithLabelValues(string(trade.CloseReason)).Inc()
	}
}

// Status returns the current run status of the bot.
func (b *Bot) Status() BotStatus {
	b.stateMtx.RLock()
	defer b.stateMtx.RUnlock()

	return b.status
}

// Candles returns a copy of the current trading timeframe candle series.
func (b *Bot) Candles() []shared.Candlestick {
	b.stateMtx.RLock()
	store := b.store
	timeframe := b.timeframe
	b.stateMtx.RUnlock()

	return store.Snapshot(timeframe)
}

// Indicators returns the latest indicator snapshots for the trading and
// confirmation timeframes.
func (b *Bot) Indicators() (indicator.Snapshot, indicator.Snapshot, indicator.Snapshot) {
	set := b.snapshots.Load()
	if set == nil {
		return indicator.Snapshot{}, indicator.Snapshot{}, indicator.Snapshot{}
	}

	return set.main, set.hourly, set.daily
}

// Signals returns a copy of the bounded signal history.
func (b *Bot) Signals() []shared.Signal {
	return b.evaluator.SignalHistory()
}

// Trades returns a copy of the full trade history.
func (b *Bot) Trades() []position.Trade {
	return b.tradeManager.Trades()
}

// Balances returns the current cash and asset balances of the ledger.
func (b *Bot) Balances() (float64, float64) {
	return b.tradeManager.Balances()
}

// Stats recomputes and returns the current performance statistics.
func (b *Bot) Stats() position.PerformanceStats {
	return b.tradeManager.Stats()
}

// Events returns a copy of the bounded bot event log.
func (b *Bot) Events() []string {
	b.eventsMtx.RLock()
	defer b.eventsMtx.RUnlock()

	set := make([]string, len(b.events))
	copy(set, b.events)

	return set
}

// MetricsHandler exposes the bot's prometheus collectors.
func (b *Bot) MetricsHandler() http.Handler {
	return b.metrics.Handler()
}
