package backtester

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/signalgen"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// minWarmupBars is the number of leading bars the driver always skips
// before evaluating signals (§4.9).
const minWarmupBars = 50

// Backtester runs one strategy against one candle table bar by bar,
// applying the SL-first exit rule, configurable commission and slippage,
// and an end-of-data force-close.
type Backtester struct {
	logger        *zap.Logger
	metrics       *MetricsCalculator
	CommissionPct decimal.Decimal
	SlippagePct   decimal.Decimal

	// ProgressFunc, if set, is called every progressEveryBars bars while
	// Run executes. The core driver never blocks on it — it's a direct
	// call, not a channel send — so a caller wiring it to a websocket hub
	// must make Publish itself non-blocking (api.Hub.Publish is).
	ProgressFunc func(types.BacktestProgress)
	RunID        string
}

// progressEveryBars caps how often ProgressFunc fires so a multi-thousand
// bar run doesn't flood a subscriber with one tick per bar.
const progressEveryBars = 50

// NewBacktester returns a Backtester with the given commission/slippage
// percentages (zero disables either).
func NewBacktester(logger *zap.Logger, commissionPct, slippagePct decimal.Decimal) *Backtester {
	return &Backtester{
		logger:        logger,
		metrics:       NewMetricsCalculator(),
		CommissionPct: commissionPct,
		SlippagePct:   slippagePct,
	}
}

// Run executes a single strategy over candles starting from startBalance,
// returning the full trade ledger, equity curve, and derived metrics
// (§4.9). Determinism: identical inputs always yield a bitwise-identical
// ledger.
func (b *Backtester) Run(s *strategy.Strategy, candles types.Candles, symbol string, startBalance decimal.Decimal) (types.BacktestResult, error) {
	if err := types.ValidateCandles(candles); err != nil {
		return types.BacktestResult{}, fmt.Errorf("backtest %s: %w", s.Name, err)
	}
	if len(candles) <= minWarmupBars {
		return types.BacktestResult{}, fmt.Errorf("backtest %s: need more than %d bars, got %d", s.Name, minWarmupBars, len(candles))
	}

	gen := signalgen.New()
	gen.AddStrategy(s)

	balance := startBalance
	peak := startBalance
	var maxDrawdown decimal.Decimal
	var openTrade *types.BacktestTrade
	var ledger []types.BacktestTrade
	equity := make([]types.EquityPoint, 0, len(candles)-minWarmupBars)

	for i := minWarmupBars; i < len(candles); i++ {
		bar := candles[i]
		prefix := candles[:i+1]

		if openTrade != nil {
			if closed, reason := b.probeExit(*openTrade, bar); reason != "" {
				trade := b.closeTrade(*openTrade, closed, reason, bar, i)
				balance = balance.Add(trade.PnL)
				ledger = append(ledger, trade)
				openTrade = nil
			}
		} else {
			signals := gen.Generate(prefix, symbol, balance)
			if len(signals) > 0 {
				openTrade = b.openPosition(signals[0], bar, i)
			}
		}

		if balance.GreaterThan(peak) {
			peak = balance
		}
		dd := peak.Sub(balance)
		if dd.GreaterThan(maxDrawdown) {
			maxDrawdown = dd
		}
		equity = append(equity, types.EquityPoint{BarIndex: i, Balance: balance})

		if b.ProgressFunc != nil && (i%progressEveryBars == 0 || i == len(candles)-1) {
			b.ProgressFunc(types.BacktestProgress{
				RunID:        b.RunID,
				StrategyName: s.Name,
				BarIndex:     i,
				TotalBars:    len(candles),
				ProgressPct:  float64(i+1) / float64(len(candles)) * 100,
				TradesSoFar:  len(ledger),
				Status:       "running",
			})
		}
	}

	if openTrade != nil {
		last := candles[len(candles)-1]
		trade := b.closeTrade(*openTrade, last.Close, types.ExitEOD, last, len(candles)-1)
		balance = balance.Add(trade.PnL)
		ledger = append(ledger, trade)
	}

	perf := b.metrics.Calculate(ledger, equity, startBalance)

	if b.ProgressFunc != nil {
		b.ProgressFunc(types.BacktestProgress{
			RunID:        b.RunID,
			StrategyName: s.Name,
			BarIndex:     len(candles) - 1,
			TotalBars:    len(candles),
			ProgressPct:  100,
			TradesSoFar:  len(ledger),
			Status:       "completed",
		})
	}

	return types.BacktestResult{
		StrategyName: s.Name,
		Trades:       ledger,
		Metrics:      perf,
		FinalBalance: balance,
		EquityCurve:  equity,
	}, nil
}

// RunMultiple runs every strategy against the same candle table, either
// sequentially or through the parallel worker pool (§4.9/§5); results are
// unordered and identified by StrategyName.
func (b *Backtester) RunMultiple(strategies []*strategy.Strategy, candles types.Candles, symbol string, startBalance decimal.Decimal, parallel bool) ([]types.BacktestResult, []error) {
	if !parallel {
		results := make([]types.BacktestResult, 0, len(strategies))
		var errs []error
		for _, s := range strategies {
			r, err := b.Run(s, candles, symbol, startBalance)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, r)
		}
		return results, errs
	}
	return RunParallel(b, strategies, candles, symbol, startBalance, 0)
}

// probeExit checks the open trade's SL/TP against the current bar using
// the SL-first rule on a same-bar double-touch (§4.9).
func (b *Backtester) probeExit(t types.BacktestTrade, bar types.Candle) (decimal.Decimal, types.ExitReason) {
	if t.Kind == types.DirectionLong {
		touchSL := bar.Low.LessThanOrEqual(t.StopLoss)
		touchTP := bar.High.GreaterThanOrEqual(t.TakeProfit)
		switch {
		case touchSL:
			return t.StopLoss, types.ExitSL
		case touchTP:
			return t.TakeProfit, types.ExitTP
		default:
			return decimal.Zero, ""
		}
	}
	touchSL := bar.High.GreaterThanOrEqual(t.StopLoss)
	touchTP := bar.Low.LessThanOrEqual(t.TakeProfit)
	switch {
	case touchSL:
		return t.StopLoss, types.ExitSL
	case touchTP:
		return t.TakeProfit, types.ExitTP
	default:
		return decimal.Zero, ""
	}
}

// openPosition opens a BacktestTrade from a Signal, applying entry
// slippage: Long enters at close*(1+slippage/100), Short at
// close*(1-slippage/100) (§4.9).
func (b *Backtester) openPosition(sig types.Signal, bar types.Candle, barIndex int) *types.BacktestTrade {
	entry := bar.Close
	frac := b.SlippagePct.Div(hundred)
	if sig.Kind == types.DirectionLong {
		entry = entry.Mul(decimal.NewFromInt(1).Add(frac))
	} else {
		entry = entry.Mul(decimal.NewFromInt(1).Sub(frac))
	}
	return &types.BacktestTrade{
		TradeID:      uuid.NewString(),
		StrategyName: sig.StrategyName,
		Kind:         sig.Kind,
		EntryTime:    bar.TimestampMs,
		EntryPrice:   entry,
		EntryBar:     barIndex,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		PositionSize: sig.PositionSize,
		RiskAmount:   sig.RiskAmount,
	}
}

// closeTrade finalizes t at exitPrice for the given reason, computing pnl
// (net of commission), r_multiple, and pnl_percent (§4.9).
func (b *Backtester) closeTrade(t types.BacktestTrade, exitPrice decimal.Decimal, reason types.ExitReason, bar types.Candle, barIndex int) types.BacktestTrade {
	delta := exitPrice.Sub(t.EntryPrice)
	if t.Kind == types.DirectionShort {
		delta = delta.Neg()
	}
	grossPnL := delta.Mul(t.PositionSize)
	commission := b.CommissionPct.Div(hundred).Mul(grossPnL.Abs())
	pnl := grossPnL.Sub(commission)

	t.ExitTime = &bar.TimestampMs
	t.ExitPrice = &exitPrice
	exitBar := barIndex
	t.ExitBar = &exitBar
	t.ExitReason = reason
	t.PnL = pnl

	denom := t.RiskAmount.Mul(t.PositionSize)
	if !denom.IsZero() {
		t.RMultiple = pnl.Div(denom)
	}
	if !t.EntryPrice.IsZero() && !t.PositionSize.IsZero() {
		invested := t.EntryPrice.Mul(t.PositionSize)
		if !invested.IsZero() {
			t.PnLPercent = pnl.Div(invested).Mul(decimal.NewFromInt(100))
		}
	}
	return t
}

var hundred = decimal.NewFromInt(100)
