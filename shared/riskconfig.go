package shared

import (
	"errors"
	"fmt"
)

// RiskConfig represents the risk parameters applied when opening trades.
type RiskConfig struct {
	// RiskPerTradePercent is the percentage of the cash balance risked per trade.
	RiskPerTradePercent float64
	// RewardRiskRatio is the target distance expressed as a multiple of the stop distance.
	RewardRiskRatio float64
	// DefaultVolatility substitutes for the average true range when it is unavailable.
	DefaultVolatility float64
}

// Validate asserts the risk config has sane inputs.
func (cfg *RiskConfig) Validate() error {
	var errs error

	if cfg.RiskPerTradePercent <= 0 || cfg.RiskPerTradePercent > 100 {
		errs = errors.Join(errs, fmt.Errorf("risk per trade percent must be in (0, 100], got %v",
			cfg.RiskPerTradePercent))
	}
	if cfg.RewardRiskRatio <= 0 {
		errs = errors.Join(errs, fmt.Errorf("reward risk ratio must be positive, got %v",
			cfg.RewardRiskRatio))
	}
	if cfg.DefaultVolatility <= 0 {
		errs = errors.Join(errs, fmt.Errorf("default volatility must be positive, got %v",
			cfg.DefaultVolatility))
	}

	return errs
}
