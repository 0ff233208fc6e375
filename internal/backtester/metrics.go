// Package backtester drives a single strategy bar by bar over a candle
// table and aggregates the resulting trade ledger into PerformanceMetrics
// (§4.9).
package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// MetricsCalculator aggregates a completed trade ledger into
// PerformanceMetrics.
type MetricsCalculator struct{}

// NewMetricsCalculator returns a MetricsCalculator.
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Calculate derives win_rate, total_pnl(+%), avg_winner/avg_loser,
// profit_factor (with the infinity sentinel when losses are zero),
// avg_r_multiple, expectancy, and the peak-to-balance drawdown, per §4.9.
func (mc *MetricsCalculator) Calculate(trades []types.BacktestTrade, equity []types.EquityPoint, initialBalance decimal.Decimal) types.PerformanceMetrics {
	m := types.PerformanceMetrics{}
	if len(trades) == 0 {
		return m
	}

	var totalWins, totalLosses, totalPnL, totalR decimal.Decimal
	var winners, losers int
	for _, t := range trades {
		totalPnL = totalPnL.Add(t.PnL)
		totalR = totalR.Add(t.RMultiple)
		switch {
		case t.PnL.IsPositive():
			winners++
			totalWins = totalWins.Add(t.PnL)
		case t.PnL.IsNegative():
			losers++
			totalLosses = totalLosses.Add(t.PnL.Abs())
		}
	}

	m.TotalTrades = len(trades)
	m.Winners = winners
	m.Losers = losers
	m.TotalPnL = totalPnL
	if !initialBalance.IsZero() {
		m.TotalPnLPercent = totalPnL.Div(initialBalance).Mul(decimal.NewFromInt(100))
	}

	n := decimal.NewFromInt(int64(len(trades)))
	m.WinRate = decimal.NewFromInt(int64(winners)).Div(n)
	m.AvgRMultiple = totalR.Div(n)

	if winners > 0 {
		m.AvgWinner = totalWins.Div(decimal.NewFromInt(int64(winners)))
	}
	if losers > 0 {
		m.AvgLoser = totalLosses.Div(decimal.NewFromInt(int64(losers))).Neg()
	}

	if totalLosses.IsZero() {
		m.ProfitFactorInf = totalWins.IsPositive()
	} else {
		m.ProfitFactor = totalWins.Div(totalLosses)
	}

	oneMinusWinRate := decimal.NewFromInt(1).Sub(m.WinRate)
	m.Expectancy = m.WinRate.Mul(m.AvgRMultiple).Sub(oneMinusWinRate)

	maxDD, maxDDPct := drawdown(equity)
	m.MaxDrawdown = maxDD
	m.MaxDrawdownPercent = maxDDPct

	return m
}

// drawdown walks the equity curve bar by bar and returns the largest
// peak-to-balance distance observed, both absolute and as a percentage of
// the peak at that point (§4.9).
func drawdown(equity []types.EquityPoint) (decimal.Decimal, decimal.Decimal) {
	if len(equity) == 0 {
		return decimal.Zero, decimal.Zero
	}
	peak := equity[0].Balance
	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	for _, p := range equity {
		if p.Balance.GreaterThan(peak) {
			peak = p.Balance
		}
		dd := peak.Sub(p.Balance)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				maxDDPct = dd.Div(peak).Mul(decimal.NewFromInt(100))
			}
		}
	}
	return maxDD, maxDDPct
}
