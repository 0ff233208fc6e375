package backtester_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/backtester"
	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// sawtoothCandles builds a deterministic up/down candle table: price
// oscillates in a repeating triangular wave, always staying above zero, so
// an always-on entry condition fires a predictable alternating mix of
// winners and losers once fixed SL/TP brackets are attached.
func sawtoothCandles(n int) types.Candles {
	candles := make(types.Candles, n)
	price := decimal.NewFromInt(100)
	step := decimal.NewFromInt(1)
	up := true
	for i := 0; i < n; i++ {
		if up {
			price = price.Add(step)
		} else {
			price = price.Sub(step)
		}
		if i%10 == 0 {
			up = !up
		}
		high := price.Add(decimal.NewFromFloat(0.5))
		low := price.Sub(decimal.NewFromFloat(0.5))
		candles[i] = types.Candle{
			TimestampMs: int64(i) * 60000,
			Open:        price,
			High:        high,
			Low:         low,
			Close:       price,
			Volume:      1000,
		}
	}
	return candles
}

// alwaysLongStrategy returns a strategy whose single entry condition is
// always true (price above zero), so a signal is evaluated on every bar
// the driver asks for one.
func alwaysLongStrategy(name string) *strategy.Strategy {
	return &strategy.Strategy{
		Name:      name,
		Timeframe: types.Timeframe1h,
		Direction: types.DirectionLong,
		Entry: []conditions.Condition{
			&conditions.PriceAbove{Level: conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.Zero}},
		},
		StopLoss:     types.SLConfig{Type: types.SLTypePercent, Percent: decimal.NewFromFloat(2)},
		TakeProfit:   types.TPConfig{Type: types.TPTypeRiskReward, Ratio: decimal.NewFromFloat(1.5)},
		RiskPercent:  decimal.NewFromFloat(1),
		MaxPositions: 1,
		Enabled:      true,
	}
}

func TestBacktesterRunDeterministic(t *testing.T) {
	candles := sawtoothCandles(300)
	logger := zap.NewNop()

	run := func() types.BacktestResult {
		bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
		result, err := bt.Run(alwaysLongStrategy("sawtooth"), candles, "TEST/USD", decimal.NewFromInt(10000))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	a := run()
	b := run()

	if len(a.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	if len(a.Trades) != len(b.Trades) {
		t.Fatalf("trade count not deterministic: %d vs %d", len(a.Trades), len(b.Trades))
	}
	for i := range a.Trades {
		if !a.Trades[i].PnL.Equal(b.Trades[i].PnL) {
			t.Fatalf("trade %d PnL not deterministic: %s vs %s", i, a.Trades[i].PnL, b.Trades[i].PnL)
		}
		if a.Trades[i].ExitReason != b.Trades[i].ExitReason {
			t.Fatalf("trade %d exit reason not deterministic: %s vs %s", i, a.Trades[i].ExitReason, b.Trades[i].ExitReason)
		}
	}
	if !a.FinalBalance.Equal(b.FinalBalance) {
		t.Fatalf("final balance not deterministic: %s vs %s", a.FinalBalance, b.FinalBalance)
	}
}

func TestBacktesterRunRequiresWarmup(t *testing.T) {
	logger := zap.NewNop()
	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	candles := sawtoothCandles(10)
	_, err := bt.Run(alwaysLongStrategy("short"), candles, "TEST/USD", decimal.NewFromInt(10000))
	if err == nil {
		t.Fatal("expected an error for a candle table shorter than the warmup window")
	}
}

func TestRunMultipleParallelMatchesSequential(t *testing.T) {
	logger := zap.NewNop()
	candles := sawtoothCandles(300)
	strategies := []*strategy.Strategy{
		alwaysLongStrategy("s1"),
		alwaysLongStrategy("s2"),
		alwaysLongStrategy("s3"),
	}

	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	seqResults, seqErrs := bt.RunMultiple(strategies, candles, "TEST/USD", decimal.NewFromInt(10000), false)
	if len(seqErrs) != 0 {
		t.Fatalf("sequential run errors: %v", seqErrs)
	}

	parResults, parErrs := bt.RunMultiple(strategies, candles, "TEST/USD", decimal.NewFromInt(10000), true)
	if len(parErrs) != 0 {
		t.Fatalf("parallel run errors: %v", parErrs)
	}

	if len(seqResults) != len(parResults) {
		t.Fatalf("result count mismatch: sequential %d, parallel %d", len(seqResults), len(parResults))
	}

	byName := make(map[string]types.BacktestResult, len(parResults))
	for _, r := range parResults {
		byName[r.StrategyName] = r
	}
	for _, seq := range seqResults {
		par, ok := byName[seq.StrategyName]
		if !ok {
			t.Fatalf("strategy %q missing from parallel results", seq.StrategyName)
		}
		if !seq.FinalBalance.Equal(par.FinalBalance) {
			t.Errorf("%s: final balance differs between sequential (%s) and parallel (%s) runs",
				seq.StrategyName, seq.FinalBalance, par.FinalBalance)
		}
		if len(seq.Trades) != len(par.Trades) {
			t.Errorf("%s: trade count differs between sequential (%d) and parallel (%d) runs",
				seq.StrategyName, len(seq.Trades), len(par.Trades))
		}
	}
}

func TestBacktesterForceClosesOpenTradeAtEOD(t *testing.T) {
	logger := zap.NewNop()
	candles := make(types.Candles, 60)
	price := decimal.NewFromInt(100)
	for i := range candles {
		candles[i] = types.Candle{
			TimestampMs: int64(i) * 60000,
			Open:        price,
			High:        price.Add(decimal.NewFromFloat(0.1)),
			Low:         price.Sub(decimal.NewFromFloat(0.1)),
			Close:       price,
			Volume:      1000,
		}
	}

	s := alwaysLongStrategy("flat")
	s.StopLoss = types.SLConfig{Type: types.SLTypePercent, Percent: decimal.NewFromInt(50)}
	s.TakeProfit = types.TPConfig{Type: types.TPTypeRiskReward, Ratio: decimal.NewFromInt(50)}

	bt := backtester.NewBacktester(logger, decimal.Zero, decimal.Zero)
	result, err := bt.Run(s, candles, "TEST/USD", decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one force-closed trade, got %d", len(result.Trades))
	}
	if result.Trades[0].ExitReason != types.ExitEOD {
		t.Fatalf("expected ExitEOD, got %s", result.Trades[0].ExitReason)
	}
	if result.Trades[0].ExitPrice == nil {
		t.Fatal("expected exit price to be set")
	}
}
