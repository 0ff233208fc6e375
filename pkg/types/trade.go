package types

import "github.com/shopspring/decimal"

// ExitReason records why a BacktestTrade was closed.
type ExitReason string

const (
	ExitTP     ExitReason = "tp"
	ExitSL     ExitReason = "sl"
	ExitSignal ExitReason = "signal"
	ExitEOD    ExitReason = "eod"
)

// BacktestTrade is one completed or open position inside a single backtest
// run's ledger.
type BacktestTrade struct {
	TradeID      string
	StrategyName string
	Kind         Direction
	EntryTime    int64
	EntryPrice   decimal.Decimal
	EntryBar     int
	ExitTime     *int64
	ExitPrice    *decimal.Decimal
	ExitBar      *int
	ExitReason   ExitReason
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	PositionSize decimal.Decimal
	RiskAmount   decimal.Decimal
	PnL          decimal.Decimal
	PnLPercent   decimal.Decimal
	RMultiple    decimal.Decimal
}

// IsOpen reports whether the trade has not yet been closed.
func (t BacktestTrade) IsOpen() bool {
	return t.ExitBar == nil
}

// PerformanceMetrics aggregates a completed trade ledger, per §4.9.
type PerformanceMetrics struct {
	TotalTrades        int
	Winners            int
	Losers             int
	WinRate            decimal.Decimal
	TotalPnL           decimal.Decimal
	TotalPnLPercent    decimal.Decimal
	AvgWinner          decimal.Decimal
	AvgLoser           decimal.Decimal
	ProfitFactor       decimal.Decimal
	ProfitFactorInf    bool // true when losses are zero: profit factor is +infinity
	AvgRMultiple       decimal.Decimal
	Expectancy         decimal.Decimal
	MaxDrawdown        decimal.Decimal
	MaxDrawdownPercent decimal.Decimal
}

// EquityPoint is one sample of the running account balance, recorded bar by
// bar for drawdown tracking and reporting.
type EquityPoint struct {
	BarIndex int
	Balance  decimal.Decimal
}

// BacktestResult is the full output of a single Backtester.Run call.
type BacktestResult struct {
	StrategyName string
	Trades       []BacktestTrade
	Metrics      PerformanceMetrics
	FinalBalance decimal.Decimal
	EquityCurve  []EquityPoint
}

// ReportRow is one line of the persisted backtest report (§6): a
// strategy-comparison table sorted by expectancy descending.
type ReportRow struct {
	StrategyName       string          `json:"strategy_name"`
	TotalTrades        int             `json:"total_trades"`
	WinRate            decimal.Decimal `json:"win_rate"`
	ProfitFactor        decimal.Decimal `json:"profit_factor"`
	AvgRMultiple       decimal.Decimal `json:"avg_r_multiple"`
	Expectancy         decimal.Decimal `json:"expectancy"`
	MaxDrawdownPercent decimal.Decimal `json:"max_drawdown_percent"`
	TotalPnLPercent    decimal.Decimal `json:"total_pnl_percent"`
}

// BuildReport turns a set of BacktestResults into the sorted tabular report
// described in §6.
func BuildReport(results []BacktestResult) []ReportRow {
	rows := make([]ReportRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, ReportRow{
			StrategyName:       r.StrategyName,
			TotalTrades:        r.Metrics.TotalTrades,
			WinRate:            r.Metrics.WinRate,
			ProfitFactor:       r.Metrics.ProfitFactor,
			AvgRMultiple:       r.Metrics.AvgRMultiple,
			Expectancy:         r.Metrics.Expectancy,
			MaxDrawdownPercent: r.Metrics.MaxDrawdownPercent,
			TotalPnLPercent:    r.Metrics.TotalPnLPercent,
		})
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].Expectancy.GreaterThan(rows[j-1].Expectancy); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
	return rows
}
