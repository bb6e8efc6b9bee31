package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ksered/cadence/position"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, timeframe TEXT, direction TEXT, quantity REAL, entryprice REAL, stoploss REAL, takeprofit REAL, score INTEGER, countertrend INTEGER, exitprice REAL, pnl REAL, closereason TEXT, openedon INTEGER, closedon INTEGER)"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, losses INTEGER, netprofit REAL, createdon INTEGER)"
	persistClosedTradeSQL  = "INSERT INTO trade(id, market, timeframe, direction, quantity, entryprice, stoploss, takeprofit, score, countertrend, exitprice, pnl, closereason, openedon, closedon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET total = total + 1, wins = wins + ?, losses = losses + ?, netprofit = netprofit + ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, total, wins, losses, netprofit, createdon) VALUES(?,?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing closed trades.
type TradeStorer interface {
	// PersistClosedTrade stores the provided closed trade to the database.
	PersistClosedTrade(ctx context.Context, trade *position.Trade) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTradeTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// current month, week and market.
func generateMetadataID(currentTime time.Time, market string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, market)
	return id
}

// PersistClosedTrade stores the provided closed trade to the database and
// updates the weekly win/loss metadata for its market.
func (db *Database) PersistClosedTrade(ctx context.Context, trade *position.Trade) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistClosedTradeSQL,
			PositionalParams: []any{trade.ID, trade.Market, trade.Timeframe.String(),
				trade.Direction.String(), trade.Quantity, trade.EntryPrice, trade.StopLoss,
				trade.TakeProfit, trade.Score, trade.CounterTrend, trade.ExitPrice, trade.PNL,
				string(trade.CloseReason), trade.OpenedOn.Unix(), trade.ClosedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	var win, loss int
	switch {
	case trade.PNL > 0:
		win++
	case trade.PNL < 0:
		loss++
	default:
		db.cfg.Logger.Info().Msgf("closed trade broke even: %s", spew.Sdump(trade))
	}

	id := generateMetadataID(trade.ClosedOn, trade.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, loss, trade.PNL, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, win, loss, trade.PNL, trade.ClosedOn.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}
