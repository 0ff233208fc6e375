package structure_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func flatATR(n int, v float64) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	d := decimal.NewFromFloat(v)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestFalseBreakoutDetectsSameBarRejection(t *testing.T) {
	level := decimal.NewFromInt(100)
	candles := types.Candles{
		candle(95, 90, 92),
		candle(104, 98, 99), // pierces above 100, closes back below it same bar
	}
	atr := flatATR(len(candles), 1) // wick of 4 well above 0.3*ATR

	d := structure.NewFalseBreakoutDetector(structure.DefaultFBConfig(), atr)
	fb, ok := d.DetectAbove(candles, level, 0)
	if !ok {
		t.Fatal("expected a false breakout to be detected")
	}
	if fb.BreakIndex != fb.ReversalIndex {
		t.Errorf("same-bar rejection should have BreakIndex == ReversalIndex, got %d != %d", fb.BreakIndex, fb.ReversalIndex)
	}
}

func TestFalseBreakoutRejectsWickBelowATRThreshold(t *testing.T) {
	level := decimal.NewFromInt(100)
	candles := types.Candles{
		candle(95, 90, 92),
		candle(100.1, 98, 99), // pierces by only 0.1, closes back below
	}
	atr := flatATR(len(candles), 10) // 0.3*10 = 3, wick of 0.1 is far below threshold

	d := structure.NewFalseBreakoutDetector(structure.DefaultFBConfig(), atr)
	if _, ok := d.DetectAbove(candles, level, 0); ok {
		t.Error("expected no false breakout when the wick is smaller than MinWickATRMult*ATR")
	}
}

func TestFalseBreakoutFindsReversalWithinMaxBreakBars(t *testing.T) {
	level := decimal.NewFromInt(100)
	candles := types.Candles{
		candle(95, 90, 92),
		candle(110, 99, 105), // pierces above, stays above on close
		candle(108, 100, 106),
		candle(95, 90, 95), // reverses back below the level here
	}
	atr := flatATR(len(candles), 1)

	cfg := structure.DefaultFBConfig()
	cfg.MaxBreakBars = 5
	d := structure.NewFalseBreakoutDetector(cfg, atr)

	fb, ok := d.DetectAbove(candles, level, 0)
	if !ok {
		t.Fatal("expected a false breakout resolved within MaxBreakBars")
	}
	if fb.ReversalIndex != 3 {
		t.Errorf("expected reversal at index 3, got %d", fb.ReversalIndex)
	}
}

func TestFalseBreakoutRespectsATRBoundsCheck(t *testing.T) {
	level := decimal.NewFromInt(100)
	candles := types.Candles{
		candle(95, 90, 92),
		candle(104, 98, 99),
	}
	// ATR series shorter than the candle table: the break index falls
	// outside it, so the detector must skip rather than index out of range.
	atr := flatATR(1, 1)

	d := structure.NewFalseBreakoutDetector(structure.DefaultFBConfig(), atr)
	if _, ok := d.DetectAbove(candles, level, 1); ok {
		t.Error("expected no false breakout when the break index has no corresponding ATR value")
	}
}
