package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/ksered/cadence/database"
	"github.com/ksered/cadence/fetch"
	"github.com/ksered/cadence/indicator"
	"github.com/ksered/cadence/position"
	"github.com/ksered/cadence/service"
	"github.com/ksered/cadence/shared"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := zlog.With().Str("service", "cadence").Logger()

	timeframe, err := shared.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		logger.Error().Msgf("parsing timeframe: %v", err)
		return
	}

	client, err := fetch.NewBinanceClient(&fetch.BinanceConfig{BaseURL: fetch.BaseURL})
	if err != nil {
		logger.Error().Msgf("creating exchange client: %v", err)
		return
	}

	streamLogger := logger.With().Str("component", "stream").Logger()
	stream, err := fetch.NewStream(&fetch.StreamConfig{
		URL:    fetch.StreamURL,
		Logger: &streamLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating live stream: %v", err)
		return
	}

	var persistClosedTrade func(trade *position.Trade) error
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			logger.Error().Msgf("creating database: %v", err)
			return
		}

		persistClosedTrade = func(trade *position.Trade) error {
			return db.PersistClosedTrade(ctx, trade)
		}
	}

	botLogger := logger.With().Str("component", "bot").Logger()
	bot, err := service.NewBot(&service.BotConfig{
		Market:         cfg.Market,
		Timeframe:      timeframe,
		InitialBalance: cfg.InitialBalance,
		Risk: shared.RiskConfig{
			RiskPerTradePercent: cfg.RiskPerTradePercent,
			RewardRiskRatio:     cfg.RewardRiskRatio,
			DefaultVolatility:   cfg.DefaultVolatility,
		},
		Indicators:         indicator.DefaultConfig(),
		Fetcher:            client,
		Streamer:           stream,
		PersistClosedTrade: persistClosedTrade,
		Logger:             &botLogger,
	})
	if err != nil {
		logger.Error().Msgf("creating bot service: %v", err)
		return
	}

	err = bot.Start()
	if err != nil {
		logger.Error().Msgf("starting bot service: %v", err)
		return
	}

	if cfg.MetricsAddr != "" {
		go func() {
			err := http.ListenAndServe(cfg.MetricsAddr, bot.MetricsHandler())
			if err != nil {
				logger.Error().Msgf("serving metrics: %v", err)
			}
		}()
	}

	go handleTermination(ctx, cancel)
	<-ctx.Done()

	err = bot.Stop()
	if err != nil {
		logger.Error().Msgf("stopping bot service: %v", err)
	}
}
