package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/ksered/cadence/shared"
)

// Config is the configuration struct for the service.
type Config struct {
	// Market is the traded market.
	Market string
	// Timeframe is the trading timeframe interval.
	Timeframe string
	// InitialBalance is the starting cash balance of the simulated account.
	InitialBalance float64
	// RiskPerTradePercent is the percentage of the cash balance risked per trade.
	RiskPerTradePercent float64
	// RewardRiskRatio is the target distance multiple of the stop distance.
	RewardRiskRatio float64
	// DefaultVolatility substitutes for the volatility range when unavailable.
	DefaultVolatility float64
	// DBEndpoint is the optional database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MetricsAddr is the optional listen address for the metrics endpoint.
	MetricsAddr string

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided for bot service"))
	}
	if _, err := shared.ParseTimeframe(cfg.Timeframe); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.InitialBalance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial balance must be positive, got %v",
			cfg.InitialBalance))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"market", &cfg.Market, "the traded market"},
		{"timeframe", &cfg.Timeframe, "the trading timeframe interval"},
		{"initialbalance", &cfg.InitialBalance, "the starting cash balance"},
		{"riskpertradepercent", &cfg.RiskPerTradePercent, "the percentage of cash risked per trade"},
		{"rewardriskratio", &cfg.RewardRiskRatio, "the target distance multiple of the stop distance"},
		{"defaultvolatility", &cfg.DefaultVolatility, "the fallback volatility value"},
		{"dbendpoint", &cfg.DBEndpoint, "the database connection endpoint"},
		{"dbuser", &cfg.DBUser, "the database user"},
		{"dbpass", &cfg.DBPass, "the database user pass"},
		{"metricsaddr", &cfg.MetricsAddr, "the metrics endpoint listen address"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	// Apply defaults for optional numeric parameters.
	if cfg.Timeframe == "" {
		cfg.Timeframe = "5m"
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = 10000
	}
	if cfg.RiskPerTradePercent == 0 {
		cfg.RiskPerTradePercent = 1
	}
	if cfg.RewardRiskRatio == 0 {
		cfg.RewardRiskRatio = 2.5
	}
	if cfg.DefaultVolatility == 0 {
		cfg.DefaultVolatility = 100
	}

	return cfg.Validate()
}
