package types

import "github.com/shopspring/decimal"

// MonteCarloConfig configures a bootstrap-resampling robustness check over
// a completed trade ledger (§2's Monte Carlo share, supplementing §4.9's
// base metrics).
type MonteCarloConfig struct {
	Iterations int             `json:"iterations" yaml:"iterations"`
	RuinFrac   decimal.Decimal `json:"ruin_fraction" yaml:"ruin_fraction"`
}

// DefaultMonteCarloConfig mirrors the source's 1000-path, 50%-ruin default.
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		Iterations: 1000,
		RuinFrac:   decimal.NewFromFloat(0.5),
	}
}

// MonteCarloResult summarizes the return/drawdown distribution obtained by
// reshuffling a trade ledger's per-trade PnL sequence.
type MonteCarloResult struct {
	Iterations      int
	MedianReturn    decimal.Decimal
	P5Return        decimal.Decimal
	P95Return       decimal.Decimal
	MaxDrawdownP95  decimal.Decimal
	ProbabilityRuin decimal.Decimal
}

// WalkForwardConfig splits a candle table into successive in-sample/
// out-of-sample bar windows.
type WalkForwardConfig struct {
	WindowBars   int     `json:"window_bars" yaml:"window_bars"`
	StepBars     int     `json:"step_bars" yaml:"step_bars"`
	InSampleFrac float64 `json:"in_sample_fraction" yaml:"in_sample_fraction"`
}

// DefaultWalkForwardConfig mirrors the source's 80/20 in-sample split.
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{
		WindowBars:   500,
		StepBars:     100,
		InSampleFrac: 0.8,
	}
}

// WalkForwardWindow is one in-sample/out-of-sample pair's result.
type WalkForwardWindow struct {
	InSampleStart, InSampleEnd   int
	OutSampleStart, OutSampleEnd int
	InSampleMetrics              PerformanceMetrics
	OutSampleMetrics             PerformanceMetrics
}

// WalkForwardResult aggregates every window plus an overall out-of-sample
// robustness ratio (out-of-sample return / in-sample return, clamped to
// [0, 2]).
type WalkForwardResult struct {
	Windows        []WalkForwardWindow
	OverallMetrics PerformanceMetrics
	Robustness     decimal.Decimal
}

// ViabilityThresholds are the minimum requirements a strategy's
// PerformanceMetrics must clear to be judged tradeable.
type ViabilityThresholds struct {
	MinProfitFactor decimal.Decimal
	MaxDrawdownPct  decimal.Decimal
	MinWinRate      decimal.Decimal
	MinTrades       int
	MinExpectancy   decimal.Decimal
}

// DefaultViabilityThresholds mirrors the source's conservative defaults.
func DefaultViabilityThresholds() ViabilityThresholds {
	return ViabilityThresholds{
		MinProfitFactor: decimal.NewFromFloat(1.5),
		MaxDrawdownPct:  decimal.NewFromFloat(20),
		MinWinRate:      decimal.NewFromFloat(0.40),
		MinTrades:       30,
		MinExpectancy:   decimal.Zero,
	}
}

// ViabilityIssue is one threshold breach found during assessment.
type ViabilityIssue struct {
	Metric      string
	Actual      decimal.Decimal
	Required    decimal.Decimal
	Severity    string // "info", "warning", "critical"
	Description string
}

// ViabilityReport is the outcome of assessing a PerformanceMetrics against
// ViabilityThresholds.
type ViabilityReport struct {
	IsViable bool
	Grade    string // A-F
	Issues   []ViabilityIssue
	Summary  string
}
