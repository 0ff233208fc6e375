package backtester

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/optimization"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// ParamApplier mutates a cloned strategy in place according to an
// optimization.ParamSet, e.g. writing params["sl_pct"] into
// StopLoss.Percent. The mapping from parameter name to strategy field is
// specific to what a given strategy document's SL/TP types actually read,
// so callers supply their own rather than this package guessing one.
type ParamApplier func(s *strategy.Strategy, params optimization.ParamSet)

// TargetMetric names the PerformanceMetrics field an optimization run
// maximizes.
type TargetMetric string

const (
	TargetExpectancy   TargetMetric = "expectancy"
	TargetProfitFactor TargetMetric = "profit_factor"
	TargetWinRate      TargetMetric = "win_rate"
	TargetTotalPnLPct  TargetMetric = "total_pnl_percent"
	TargetCalmar       TargetMetric = "calmar" // total_pnl_percent / max_drawdown_percent
)

// metricValue converts one PerformanceMetrics field to a float64 for the
// optimizer's score comparisons. decimal.Decimal remains the system of
// record for every trade and ledger value; this conversion happens only at
// the optimizer boundary, which compares scores with ordinary float math.
func metricValue(metric TargetMetric, m types.PerformanceMetrics) float64 {
	switch metric {
	case TargetProfitFactor:
		if m.ProfitFactorInf {
			return math.MaxFloat64
		}
		v, _ := m.ProfitFactor.Float64()
		return v
	case TargetWinRate:
		v, _ := m.WinRate.Float64()
		return v
	case TargetTotalPnLPct:
		v, _ := m.TotalPnLPercent.Float64()
		return v
	case TargetCalmar:
		if m.MaxDrawdownPercent.IsZero() {
			return math.MaxFloat64
		}
		pnl, _ := m.TotalPnLPercent.Float64()
		dd, _ := m.MaxDrawdownPercent.Float64()
		return pnl / dd
	default:
		v, _ := m.Expectancy.Float64()
		return v
	}
}

// NewObjective builds an optimization.ObjectiveFunc that, for a given
// ParamSet: clones base (so the search never mutates the caller's
// strategy or leaks Sequence state across evaluations), applies params via
// apply, runs the clone against candles with b, and scores the result by
// metric. A run that produces no trades scores as negative infinity so the
// optimizer never prefers an empty ledger over a losing one; a run that
// errors is reported to the optimizer, which treats it the same way.
func NewObjective(b *Backtester, base *strategy.Strategy, candles types.Candles, symbol string, startBalance decimal.Decimal, apply ParamApplier, metric TargetMetric) optimization.ObjectiveFunc {
	return func(params optimization.ParamSet) (float64, error) {
		clone := base.Clone()
		apply(clone, params)

		result, err := b.Run(clone, candles, symbol, startBalance)
		if err != nil {
			return 0, err
		}
		if result.Metrics.TotalTrades == 0 {
			return math.Inf(-1), nil
		}
		return metricValue(metric, result.Metrics), nil
	}
}
