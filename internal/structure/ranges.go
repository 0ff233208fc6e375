package structure

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// RangeConfig configures the range/Fibonacci detector (§4.3).
type RangeConfig struct {
	MinRangeBars      int
	MaxRangeBars      int
	MinTouches        int
	TouchTolerancePct decimal.Decimal
}

// DefaultRangeConfig returns reasonable defaults.
func DefaultRangeConfig() RangeConfig {
	return RangeConfig{
		MinRangeBars:      5,
		MaxRangeBars:      200,
		MinTouches:        4,
		TouchTolerancePct: decimal.NewFromFloat(1.0),
	}
}

// RangeDetector builds consolidation ranges from swing-high/swing-low pairs
// and tracks their touches and breaks.
type RangeDetector struct {
	cfg    RangeConfig
	swings *SwingDetector
}

// NewRangeDetector creates a detector backed by a swing detector.
func NewRangeDetector(cfg RangeConfig, swings *SwingDetector) *RangeDetector {
	return &RangeDetector{cfg: cfg, swings: swings}
}

// Detect returns every candidate range built from (SwingHigh, earliest
// subsequent SwingLow) pairs, evaluated independently.
func (d *RangeDetector) Detect(candles types.Candles) []types.Range {
	swings := d.swings.Detect(candles)

	var ranges []types.Range
	for hi := 0; hi < len(swings); hi++ {
		if swings[hi].Kind != types.SwingHigh {
			continue
		}
		var low types.SwingPoint
		found := false
		for lo := hi + 1; lo < len(swings); lo++ {
			if swings[lo].Kind == types.SwingLow {
				low = swings[lo]
				found = true
				break
			}
		}
		if !found {
			continue
		}
		high := swings[hi]
		startIdx, endIdx := high.Index, low.Index
		if startIdx > endIdx {
			startIdx, endIdx = endIdx, startIdx
		}
		if endIdx-startIdx < d.cfg.MinRangeBars {
			continue
		}
		if high.Price.LessThanOrEqual(low.Price) {
			continue
		}
		r := d.walk(candles, high, low)
		ranges = append(ranges, r)
	}
	return ranges
}

// Current returns the latest Range still Forming or Confirmed, or
// (zero, false) if none.
func (d *RangeDetector) Current(candles types.Candles) (types.Range, bool) {
	ranges := d.Detect(candles)
	for i := len(ranges) - 1; i >= 0; i-- {
		if ranges[i].Status == types.RangeForming || ranges[i].Status == types.RangeConfirmed {
			return ranges[i], true
		}
	}
	return types.Range{}, false
}

func (d *RangeDetector) walk(candles types.Candles, high, low types.SwingPoint) types.Range {
	r := types.Range{
		High:      high.Price,
		Low:       low.Price,
		StartIndex: high.Index,
		EndIndex:  low.Index,
		HighSwing: high,
		LowSwing:  low,
		Status:    types.RangeForming,
	}
	if high.Index > low.Index {
		r.StartIndex, r.EndIndex = low.Index, high.Index
	}

	height := r.Height()
	tolerance := height.Mul(d.cfg.TouchTolerancePct).Div(decimal.NewFromInt(100))

	walkStart := r.EndIndex + 1
	walkEnd := walkStart + d.cfg.MaxRangeBars
	if walkEnd > len(candles) {
		walkEnd = len(candles)
	}

	for i := walkStart; i < walkEnd; i++ {
		bar := candles[i]
		r.EndIndex = i

		if bar.High.GreaterThan(r.High.Add(tolerance)) {
			r.Status = types.RangeBrokenUp
			return r
		}
		if bar.Low.LessThan(r.Low.Sub(tolerance)) {
			r.Status = types.RangeBrokenDown
			return r
		}
		if bar.High.GreaterThanOrEqual(r.High.Sub(tolerance)) {
			r.HighTouches++
		}
		if bar.Low.LessThanOrEqual(r.Low.Add(tolerance)) {
			r.LowTouches++
		}
	}

	if r.HighTouches+r.LowTouches >= d.cfg.MinTouches {
		r.Status = types.RangeConfirmed
	} else {
		r.Status = types.RangeForming
	}
	return r
}

// FibPct returns the price at retracement fraction pct of r's height.
func FibPct(r types.Range, pct decimal.Decimal) decimal.Decimal {
	return r.Fib(pct)
}

// At25Level reports whether price is within tolerancePct of r's 25% level.
func At25Level(r types.Range, price, tolerancePct decimal.Decimal) bool {
	return atLevel(r, price, decimal.NewFromFloat(0.25), tolerancePct)
}

// At75Level reports whether price is within tolerancePct of r's 75% level.
func At75Level(r types.Range, price, tolerancePct decimal.Decimal) bool {
	return atLevel(r, price, decimal.NewFromFloat(0.75), tolerancePct)
}

func atLevel(r types.Range, price, pct, tolerancePct decimal.Decimal) bool {
	level := r.Fib(pct)
	tolerance := r.Height().Mul(tolerancePct).Div(decimal.NewFromInt(100))
	diff := price.Sub(level).Abs()
	return diff.LessThanOrEqual(tolerance)
}
