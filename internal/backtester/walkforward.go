package backtester

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// WalkForwardAnalyzer slides an in-sample/out-of-sample window pair across a
// candle table, re-running the same strategy on each split to check whether
// its in-sample edge survives on unseen bars — a robustness check §4.9's
// single full-history run doesn't provide.
type WalkForwardAnalyzer struct {
	logger *zap.Logger
	bt     *Backtester
}

// NewWalkForwardAnalyzer returns a WalkForwardAnalyzer driven by bt (so its
// windows share bt's commission/slippage assumptions with the full-history
// run).
func NewWalkForwardAnalyzer(logger *zap.Logger, bt *Backtester) *WalkForwardAnalyzer {
	return &WalkForwardAnalyzer{logger: logger, bt: bt}
}

// Run slides config.WindowBars-wide windows across candles every
// config.StepBars, splitting each window in_sample_fraction/rest between an
// in-sample and out-of-sample run of s, and aggregates every out-of-sample
// trade into an overall metrics set plus a robustness ratio.
func (wf *WalkForwardAnalyzer) Run(ctx context.Context, s *strategy.Strategy, candles types.Candles, symbol string, startBalance decimal.Decimal, config types.WalkForwardConfig) (*types.WalkForwardResult, error) {
	if config.WindowBars <= 0 || config.StepBars <= 0 {
		return nil, fmt.Errorf("walk-forward: window_bars and step_bars must be positive")
	}
	frac := config.InSampleFrac
	if frac <= 0 || frac >= 1 {
		frac = 0.8
	}

	var windows []types.WalkForwardWindow
	var allTrades []types.BacktestTrade
	var allEquity []types.EquityPoint

	for start := 0; start+config.WindowBars <= len(candles); start += config.StepBars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		inEnd := start + int(float64(config.WindowBars)*frac)
		outEnd := start + config.WindowBars
		if inEnd <= start+minWarmupBars || outEnd <= inEnd+minWarmupBars {
			continue
		}

		inResult, err := wf.bt.Run(s.Clone(), candles[start:inEnd], symbol, startBalance)
		if err != nil {
			wf.logger.Warn("walk-forward in-sample run failed", zap.Int("window_start", start), zap.Error(err))
			continue
		}
		outResult, err := wf.bt.Run(s.Clone(), candles[inEnd:outEnd], symbol, startBalance)
		if err != nil {
			wf.logger.Warn("walk-forward out-of-sample run failed", zap.Int("window_start", start), zap.Error(err))
			continue
		}

		windows = append(windows, types.WalkForwardWindow{
			InSampleStart:  start,
			InSampleEnd:    inEnd,
			OutSampleStart: inEnd,
			OutSampleEnd:   outEnd,
			InSampleMetrics:  inResult.Metrics,
			OutSampleMetrics: outResult.Metrics,
		})
		allTrades = append(allTrades, outResult.Trades...)
		allEquity = append(allEquity, outResult.EquityCurve...)
	}

	if len(windows) == 0 {
		return nil, fmt.Errorf("walk-forward: no valid windows produced for %d candles", len(candles))
	}

	overall := wf.bt.metrics.Calculate(allTrades, allEquity, startBalance)
	robustness := calculateRobustness(windows)

	wf.logger.Info("walk-forward analysis complete",
		zap.Int("windows", len(windows)),
		zap.String("robustness", robustness.String()),
		zap.Int("out_of_sample_trades", len(allTrades)),
	)

	return &types.WalkForwardResult{
		Windows:        windows,
		OverallMetrics: overall,
		Robustness:     robustness,
	}, nil
}

// calculateRobustness is the ratio of summed out-of-sample to in-sample
// total PnL, clamped to [0, 2]; values near or above 1 indicate the
// strategy's edge survives outside the bars it was "tuned" against.
func calculateRobustness(windows []types.WalkForwardWindow) decimal.Decimal {
	var inTotal, outTotal decimal.Decimal
	for _, w := range windows {
		inTotal = inTotal.Add(w.InSampleMetrics.TotalPnL)
		outTotal = outTotal.Add(w.OutSampleMetrics.TotalPnL)
	}
	if inTotal.IsZero() {
		return decimal.Zero
	}
	r := outTotal.Div(inTotal)
	switch {
	case r.LessThan(decimal.Zero):
		return decimal.Zero
	case r.GreaterThan(decimal.NewFromInt(2)):
		return decimal.NewFromInt(2)
	default:
		return r
	}
}
