package backtester_test

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/backtester"
	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/optimization"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// applySLPercentAndTPRatio writes an optimization.ParamSet's "sl_pct" and
// "tp_ratio" entries into a cloned strategy's stop-loss/take-profit config.
func applySLPercentAndTPRatio(s *strategy.Strategy, params optimization.ParamSet) {
	s.StopLoss.Percent = decimal.NewFromFloat(params["sl_pct"])
	s.TakeProfit.Ratio = decimal.NewFromFloat(params["tp_ratio"])
}

func TestObjectiveScoresExpectancyFromBacktestRun(t *testing.T) {
	candles := sawtoothCandles(300)
	logger := zap.NewNop()
	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	base := alwaysLongStrategy("sawtooth")

	objective := backtester.NewObjective(bt, base, candles, "TEST/USD", decimal.NewFromInt(10000), applySLPercentAndTPRatio, backtester.TargetExpectancy)

	score, err := objective(optimization.ParamSet{"sl_pct": 2, "tp_ratio": 1.5})
	if err != nil {
		t.Fatalf("objective failed: %v", err)
	}
	if score == 0 {
		t.Error("expected a non-zero expectancy score for a strategy that trades")
	}

	// base must be untouched: the objective clones before mutating.
	if !base.StopLoss.Percent.Equal(decimal.NewFromFloat(2)) {
		t.Errorf("expected base strategy's stop-loss percent to stay 2, got %s", base.StopLoss.Percent)
	}
}

func TestObjectiveScoresNoTradesAsNegativeInfinity(t *testing.T) {
	logger := zap.NewNop()
	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	base := &strategy.Strategy{
		Name:      "never-fires",
		Timeframe: types.Timeframe1h,
		Direction: types.DirectionLong,
		Entry: []conditions.Condition{
			&conditions.PriceAbove{Level: conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.NewFromInt(1_000_000)}},
		},
		StopLoss:     types.SLConfig{Type: types.SLTypePercent, Percent: decimal.NewFromFloat(2)},
		TakeProfit:   types.TPConfig{Type: types.TPTypeRiskReward, Ratio: decimal.NewFromFloat(1.5)},
		RiskPercent:  decimal.NewFromFloat(1),
		MaxPositions: 1,
		Enabled:      true,
	}

	objective := backtester.NewObjective(bt, base, sawtoothCandles(300), "TEST/USD", decimal.NewFromInt(10000), applySLPercentAndTPRatio, backtester.TargetExpectancy)

	score, err := objective(optimization.ParamSet{"sl_pct": 2, "tp_ratio": 1.5})
	if err != nil {
		t.Fatalf("objective failed: %v", err)
	}
	if score != math.Inf(-1) {
		t.Errorf("expected negative infinity for a strategy whose entry condition never fires, got %v", score)
	}
}

func TestGridSearchFindsBestSLTPCombination(t *testing.T) {
	candles := sawtoothCandles(300)
	logger := zap.NewNop()
	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	base := alwaysLongStrategy("sawtooth")

	objective := backtester.NewObjective(bt, base, candles, "TEST/USD", decimal.NewFromInt(10000), applySLPercentAndTPRatio, backtester.TargetExpectancy)

	config := optimization.DefaultOptimizerConfig()
	config.Method = optimization.MethodGridSearch
	config.GridResolution = 3
	config.ParallelWorkers = 4
	opt := optimization.NewOptimizer(logger, config)

	params := []optimization.Parameter{
		{Name: "sl_pct", Type: optimization.ParamTypeContinuous, Min: 1, Max: 3},
		{Name: "tp_ratio", Type: optimization.ParamTypeContinuous, Min: 1, Max: 3},
	}

	result, err := opt.Optimize(context.Background(), params, objective)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.Iterations == 0 {
		t.Fatal("expected at least one evaluated combination")
	}
	if _, ok := result.BestParams["sl_pct"]; !ok {
		t.Error("expected the winning param set to include sl_pct")
	}
	if _, ok := result.BestParams["tp_ratio"]; !ok {
		t.Error("expected the winning param set to include tp_ratio")
	}
}
