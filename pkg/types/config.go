// Package types provides configuration types for the engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side a strategy, signal, or trade takes.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionBoth  Direction = "both"
)

// SLType selects the stop-loss placement rule.
type SLType string

const (
	SLTypeATR     SLType = "atr"
	SLTypePercent SLType = "percent"
	SLTypeFixed   SLType = "fixed"
	SLTypeSwing   SLType = "swing"
	SLTypeLevel   SLType = "level"
)

// SLConfig is the declarative stop-loss configuration attached to a strategy.
type SLConfig struct {
	Type               SLType          `json:"type" yaml:"type"`
	Value              decimal.Decimal `json:"value,omitempty" yaml:"value,omitempty"`
	Multiplier         decimal.Decimal `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Percent            decimal.Decimal `json:"percent,omitempty" yaml:"percent,omitempty"`
	Trailing           bool            `json:"trailing,omitempty" yaml:"trailing,omitempty"`
	TrailingActivation decimal.Decimal `json:"trailing_activation,omitempty" yaml:"trailing_activation,omitempty"`
}

// TPType selects the take-profit placement rule.
type TPType string

const (
	TPTypeRiskReward TPType = "risk_reward"
	TPTypeATR        TPType = "atr"
	TPTypePercent    TPType = "percent"
	TPTypeFixed      TPType = "fixed"
	TPTypeLevel      TPType = "level"
)

// TPConfig is the declarative take-profit configuration attached to a
// strategy.
type TPConfig struct {
	Type         TPType            `json:"type" yaml:"type"`
	Value        decimal.Decimal   `json:"value,omitempty" yaml:"value,omitempty"`
	Ratio        decimal.Decimal   `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Multiplier   decimal.Decimal   `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Percent      decimal.Decimal   `json:"percent,omitempty" yaml:"percent,omitempty"`
	PartialExits []decimal.Decimal `json:"partial_exits,omitempty" yaml:"partial_exits,omitempty"`
}

// RiskLimits bounds a backtest run's exposure. Nothing in the core reads
// it: neither the signal generator nor the driver enforces
// MaxOpenPositions, and MaxDrawdown is informational unless a caller
// chooses to halt a run on breach (the core driver itself never aborts on
// drawdown, it only records it in PerformanceMetrics).
type RiskLimits struct {
	MaxOpenPositions int             `json:"max_open_positions" yaml:"max_open_positions"`
	MaxPositionSize  decimal.Decimal `json:"max_position_size" yaml:"max_position_size"`
	MaxDrawdown      decimal.Decimal `json:"max_drawdown" yaml:"max_drawdown"`
}

// BacktestProgress is streamed over the reporting server's websocket while a
// run executes; the core driver never blocks on it.
type BacktestProgress struct {
	RunID          string  `json:"run_id"`
	StrategyName   string  `json:"strategy_name"`
	BarIndex       int     `json:"bar_index"`
	TotalBars      int     `json:"total_bars"`
	ProgressPct    float64 `json:"progress_pct"`
	TradesSoFar    int     `json:"trades_so_far"`
	Status         string  `json:"status"` // "running", "completed", "failed", "cancelled"
	Error          string  `json:"error,omitempty"`
}

// ServerConfig configures the optional read-only reporting HTTP/WebSocket
// server (§11 of the design: a thin view over persisted BacktestResults,
// never the run path itself).
type ServerConfig struct {
	Host          string        `json:"host" yaml:"host"`
	Port          int           `json:"port" yaml:"port"`
	ReadTimeout   time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" yaml:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics" yaml:"enable_metrics"`
}

// DefaultServerConfig returns sane defaults for the reporting server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:          "127.0.0.1",
		Port:          8090,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		EnableMetrics: true,
	}
}

// EngineConfig is the top-level configuration for a CLI backtest run,
// populated by viper from flags, environment, and an optional config file.
type EngineConfig struct {
	StrategyPath   string          `json:"strategy_path" yaml:"strategy_path"`
	CandlesPath    string          `json:"candles_path" yaml:"candles_path"`
	Symbol         string          `json:"symbol" yaml:"symbol"`
	InitialBalance decimal.Decimal `json:"initial_balance" yaml:"initial_balance"`
	CommissionPct  decimal.Decimal `json:"commission_pct" yaml:"commission_pct"`
	SlippagePct    decimal.Decimal `json:"slippage_pct" yaml:"slippage_pct"`
	WorkerPoolSize int             `json:"worker_pool_size" yaml:"worker_pool_size"`
	LogLevel       string          `json:"log_level" yaml:"log_level"`
}

// DefaultEngineConfig mirrors the spec's defaults: 4 workers, no commission
// or slippage unless configured.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InitialBalance: decimal.NewFromInt(10000),
		CommissionPct:  decimal.Zero,
		SlippagePct:    decimal.Zero,
		WorkerPoolSize: 4,
		LogLevel:       "info",
	}
}
