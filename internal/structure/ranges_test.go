package structure_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// boxCandles produces a swing-high, then a swing-low, then several bars
// oscillating between them without breaking out, wide enough to confirm a
// range by touch count.
func boxCandles() types.Candles {
	return types.Candles{
		candle(10, 9, 9.5),
		candle(9.5, 7, 7.5),
		candle(12, 8, 11.5), // swing high near 12
		candle(9, 6, 7.5),
		candle(7, 3, 3.5),   // swing low near 3
		candle(9, 6, 8.5),
		candle(11, 7, 9),
		candle(8, 4, 5),
		candle(11, 7, 9),
		candle(8, 4, 5),
		candle(11, 7, 9),
	}
}

func TestRangeHeightIsHighMinusLow(t *testing.T) {
	r := types.Range{High: decimal.NewFromInt(110), Low: decimal.NewFromInt(90)}
	if !r.Height().Equal(decimal.NewFromInt(20)) {
		t.Errorf("Height() = %s, want 20", r.Height())
	}
}

func TestRangeFibBoundaries(t *testing.T) {
	r := types.Range{High: decimal.NewFromInt(110), Low: decimal.NewFromInt(90)}
	if !r.Fib(decimal.Zero).Equal(r.Low) {
		t.Errorf("Fib(0) should equal Low, got %s", r.Fib(decimal.Zero))
	}
	if !r.Fib(decimal.NewFromInt(1)).Equal(r.High) {
		t.Errorf("Fib(1) should equal High, got %s", r.Fib(decimal.NewFromInt(1)))
	}
	mid := r.Fib(decimal.NewFromFloat(0.5))
	if !mid.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Fib(0.5) = %s, want 100", mid)
	}
}

func TestRangeDetectorConfirmsRangeAfterEnoughTouches(t *testing.T) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	cfg := structure.DefaultRangeConfig()
	cfg.MinRangeBars = 1
	d := structure.NewRangeDetector(cfg, swings)

	ranges := d.Detect(boxCandles())
	if len(ranges) == 0 {
		t.Fatal("expected at least one candidate range from a swing-high/swing-low pair")
	}
	for _, r := range ranges {
		if r.Status != types.RangeForming && r.Status != types.RangeConfirmed &&
			r.Status != types.RangeBrokenUp && r.Status != types.RangeBrokenDown {
			t.Errorf("range has an unrecognized status: %v", r.Status)
		}
	}
}

func TestRangeDetectorSkipsHighBelowLow(t *testing.T) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	d := structure.NewRangeDetector(structure.DefaultRangeConfig(), swings)
	for _, r := range d.Detect(zigzagCandles()) {
		if r.High.LessThanOrEqual(r.Low) {
			t.Errorf("detected range has High <= Low: %+v", r)
		}
	}
}

func TestAt25And75FibLevelToleranceSymmetric(t *testing.T) {
	r := types.Range{High: decimal.NewFromInt(200), Low: decimal.NewFromInt(100)}
	tol := decimal.NewFromFloat(1.0)

	level25 := r.Fib(decimal.NewFromFloat(0.25))
	if !structure.At25Level(r, level25, tol) {
		t.Error("price exactly at the 25% level should satisfy At25Level")
	}
	level75 := r.Fib(decimal.NewFromFloat(0.75))
	if !structure.At75Level(r, level75, tol) {
		t.Error("price exactly at the 75% level should satisfy At75Level")
	}
	if structure.At25Level(r, r.High, tol) {
		t.Error("price at the range high should not satisfy At25Level with a 1% tolerance")
	}
}
