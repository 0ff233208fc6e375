package backtester_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/backtester"
	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// This file exercises the six end-to-end scenarios: an ascending sawtooth
// producing a BOS, a 75%-Fib-level touch, a false breakout below a swing
// low, deterministic backtests (see TestBacktesterRunDeterministic and
// TestRunMultipleParallelMatchesSequential in driver_test.go for the
// fourth), an SL-first exit, and a sequence cursor reset.

func ohlc(high, low, close float64) types.Candle {
	return types.Candle{Open: decimal.NewFromFloat(close), High: decimal.NewFromFloat(high), Low: decimal.NewFromFloat(low), Close: decimal.NewFromFloat(close)}
}

// ascendingSawtoothCandles builds a nine-bar uptrend whose confirmed swings
// are SwingHigh(idx0,100,none) -> SwingLow(idx1,90,none) ->
// SwingLow(idx3,97,HL) -> SwingHigh(idx4,120,HH), broken on the final bar
// by a high of 125 closing at 121.
func ascendingSawtoothCandles() types.Candles {
	return types.Candles{
		ohlc(100, 95, 98),
		ohlc(97, 90, 93),
		ohlc(110, 100, 108),
		ohlc(105, 97, 100),
		ohlc(120, 110, 118),
		ohlc(115, 105, 108),
		ohlc(100, 89, 93),
		ohlc(113, 95, 110),
		ohlc(125, 80, 121),
	}
}

func TestScenarioAscendingSawtoothProducesBOSBullAtTop(t *testing.T) {
	candles := ascendingSawtoothCandles()
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	d := structure.NewBreakDetector(structure.DefaultBreakConfig(), swings)

	confirmed := swings.Detect(candles)
	var lows, highs []types.SwingPoint
	for _, s := range confirmed {
		if s.Kind == types.SwingLow {
			lows = append(lows, s)
		} else {
			highs = append(highs, s)
		}
	}
	if len(lows) != 2 || lows[len(lows)-1].Structure != types.StructureHL {
		t.Fatalf("expected the second confirmed swing low to be labeled HL, got %+v", lows)
	}
	if len(highs) != 2 || highs[len(highs)-1].Structure != types.StructureHH {
		t.Fatalf("expected the second confirmed swing high to be labeled HH, got %+v", highs)
	}

	breaks := d.DetectBOS(candles)
	if len(breaks) != 1 {
		t.Fatalf("expected exactly one BOS break, got %d: %+v", len(breaks), breaks)
	}
	b := breaks[0]
	if b.Kind != types.BreakBOSBull {
		t.Errorf("expected a bullish BOS, got %s", b.Kind)
	}
	if b.BreakIndex != len(candles)-1 {
		t.Errorf("expected the break on the final bar (index %d), got %d", len(candles)-1, b.BreakIndex)
	}
	if !b.BreakPrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected break_price 120, got %s", b.BreakPrice)
	}
	if !b.BreakClose.Equal(decimal.NewFromInt(121)) {
		t.Errorf("expected break_close 121, got %s", b.BreakClose)
	}
}

func TestScenarioRangeSeventyFivePercentTouch(t *testing.T) {
	r := types.Range{High: decimal.NewFromInt(120), Low: decimal.NewFromInt(100)}
	tolerance := decimal.NewFromFloat(1.0)
	price := decimal.NewFromInt(115)

	fib75 := r.Fib(decimal.NewFromFloat(0.75))
	if !fib75.Equal(decimal.NewFromInt(115)) {
		t.Fatalf("expected fib_75 = 115, got %s", fib75)
	}
	if !structure.At75Level(r, price, tolerance) {
		t.Error("expected a close at 115 to satisfy At75Level against range [100,120] with 1% tolerance")
	}
}

func TestScenarioFalseBreakoutBelowSwingLow(t *testing.T) {
	level := decimal.NewFromInt(100)
	candles := types.Candles{
		ohlc(102, 100.2, 101),
		ohlc(101, 99, 100.5), // pierces below 100, closes back above it same bar
	}
	atr := []decimal.Decimal{decimal.NewFromFloat(1), decimal.NewFromFloat(1)}

	d := structure.NewFalseBreakoutDetector(structure.DefaultFBConfig(), atr)
	fb, ok := d.DetectBelow(candles, level, 0)
	if !ok {
		t.Fatal("expected a false breakout below the swing low")
	}
	if fb.BreakIndex != 1 || fb.ReversalIndex != 1 {
		t.Errorf("expected a same-bar rejection at index 1, got break=%d reversal=%d", fb.BreakIndex, fb.ReversalIndex)
	}
	if !fb.WickSize.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected wick_size 1.0, got %s", fb.WickSize)
	}
	if fb.VolumeSpike {
		t.Error("expected volume_spike false with no spike configured and too few prior bars")
	}
}

func TestScenarioSLFirstExitWhenBothTouchedSameBar(t *testing.T) {
	candles := make(types.Candles, 52)
	for i := range candles {
		price := decimal.NewFromInt(100)
		candles[i] = types.Candle{
			TimestampMs: int64(i) * 60000,
			Open:        price,
			High:        price.Add(decimal.NewFromFloat(0.2)),
			Low:         price.Sub(decimal.NewFromFloat(0.2)),
			Close:       price,
			Volume:      1000,
		}
	}
	// On the bar immediately after entry, the low touches the stop and the
	// high touches the target in the same bar.
	candles[51].Low = decimal.NewFromInt(98)
	candles[51].High = decimal.NewFromInt(103)

	s := &strategy.Strategy{
		Name:      "sl-first",
		Timeframe: types.Timeframe1h,
		Direction: types.DirectionLong,
		Entry: []conditions.Condition{
			&conditions.PriceAbove{Level: conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.Zero}},
		},
		StopLoss:     types.SLConfig{Type: types.SLTypeLevel, Value: decimal.NewFromInt(99)},
		TakeProfit:   types.TPConfig{Type: types.TPTypeLevel, Value: decimal.NewFromInt(102)},
		RiskPercent:  decimal.NewFromInt(1),
		MaxPositions: 1,
		Enabled:      true,
	}
	bt := backtester.NewBacktester(zap.NewNop(), decimal.Zero, decimal.Zero)
	result, err := bt.Run(s, candles, "TEST/USD", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.ExitReason != types.ExitSL {
		t.Fatalf("expected SL-first priority to win, got exit reason %s", trade.ExitReason)
	}
	if !trade.ExitPrice.Equal(decimal.NewFromInt(99)) {
		t.Errorf("expected exit price 99, got %s", *trade.ExitPrice)
	}
	if !trade.RMultiple.Equal(decimal.NewFromInt(-1)) {
		t.Errorf("expected r_multiple -1.0, got %s", trade.RMultiple)
	}
}

func TestScenarioSequenceResetsWhenSecondStepMissesWindow(t *testing.T) {
	seq := &conditions.Sequence{
		Steps: []conditions.Condition{
			&conditions.PriceAbove{Level: conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.NewFromInt(100)}},
			&conditions.PriceAbove{Level: conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.NewFromInt(1_000_000)}},
		},
		MaxBarsBetween: 3,
	}

	barAt := func(i int, close float64) types.Candles {
		out := make(types.Candles, i+1)
		for k := 0; k < i; k++ {
			out[k] = ohlc(1, 1, 1)
		}
		out[i] = types.Candle{Close: decimal.NewFromFloat(close)}
		return out
	}

	// A fires at bar 10 (step A's price-above-100 condition is true).
	r := seq.Evaluate(barAt(10, 150), nil)
	if r.Verdict != types.VerdictNeutral || seq.CurrentStep != 1 {
		t.Fatalf("expected step A to advance the cursor to step 1, got verdict=%s step=%d", r.Verdict, seq.CurrentStep)
	}

	// B never fires (step B's threshold of 1,000,000 is never crossed), and
	// by bar 14 the window (max_bars_between=3 since bar 10) has elapsed.
	// This bar's own close also fails to satisfy step A, so the reset cursor
	// makes no further progress on this bar either.
	r = seq.Evaluate(barAt(14, 50), nil)
	if seq.CurrentStep != 0 {
		t.Fatalf("expected the cursor to reset to step 0 once the window lapsed, got %d", seq.CurrentStep)
	}
	if r.Verdict == types.VerdictTrue {
		t.Error("expected the sequence not to complete once its window lapsed")
	}

	// Re-observing A must be required again before B can complete it.
	r = seq.Evaluate(barAt(15, 2_000_000), nil)
	if r.Verdict != types.VerdictNeutral || seq.CurrentStep != 1 {
		t.Fatalf("expected re-observing step A to advance the cursor again, got verdict=%s step=%d", r.Verdict, seq.CurrentStep)
	}
}
