package structure

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// FBConfig configures the false-breakout / liquidity-sweep detector (§4.5).
type FBConfig struct {
	MinWickATRMult   decimal.Decimal
	MaxBreakBars     int
	RequireVolumeSpike bool
	VolumeSpikeMult  decimal.Decimal
	VolumeWindow     int
}

// DefaultFBConfig returns the spec's default false-breakout thresholds.
func DefaultFBConfig() FBConfig {
	return FBConfig{
		MinWickATRMult:     decimal.NewFromFloat(0.3),
		MaxBreakBars:       5,
		RequireVolumeSpike: false,
		VolumeSpikeMult:    decimal.NewFromFloat(2.0),
		VolumeWindow:       20,
	}
}

// LiquiditySweepConfig returns the stricter defaults for a liquidity sweep:
// tighter wick threshold, volume spike required.
func LiquiditySweepConfig() FBConfig {
	cfg := DefaultFBConfig()
	cfg.MinWickATRMult = decimal.NewFromFloat(0.5)
	cfg.RequireVolumeSpike = true
	return cfg
}

// FalseBreakoutDetector finds wick-and-rejection events at an arbitrary
// level (swing, range boundary, or ad-hoc price).
type FalseBreakoutDetector struct {
	cfg FBConfig
	atr []decimal.Decimal
}

// NewFalseBreakoutDetector creates a detector. atr14 is the precomputed
// ATR14 series for the same candle table that will be passed to Detect.
func NewFalseBreakoutDetector(cfg FBConfig, atr14 []decimal.Decimal) *FalseBreakoutDetector {
	return &FalseBreakoutDetector{cfg: cfg, atr: atr14}
}

// DetectAbove scans forward from startIdx for an Above-type false breakout
// of level L.
func (d *FalseBreakoutDetector) DetectAbove(candles types.Candles, level decimal.Decimal, startIdx int) (types.FalseBreakout, bool) {
	return d.detect(candles, level, startIdx, types.FBAbove)
}

// DetectBelow scans forward from startIdx for a Below-type false breakout
// of level L.
func (d *FalseBreakoutDetector) DetectBelow(candles types.Candles, level decimal.Decimal, startIdx int) (types.FalseBreakout, bool) {
	return d.detect(candles, level, startIdx, types.FBBelow)
}

func (d *FalseBreakoutDetector) detect(candles types.Candles, level decimal.Decimal, startIdx int, kind types.FBKind) (types.FalseBreakout, bool) {
	for i := startIdx; i < len(candles); i++ {
		bar := candles[i]
		pierced := (kind == types.FBAbove && bar.High.GreaterThan(level)) ||
			(kind == types.FBBelow && bar.Low.LessThan(level))
		if !pierced {
			continue
		}

		sameBarReject := (kind == types.FBAbove && bar.Close.LessThanOrEqual(level)) ||
			(kind == types.FBBelow && bar.Close.GreaterThanOrEqual(level))

		if sameBarReject {
			return d.build(candles, level, i, i, kind)
		}

		// Extend up to MaxBreakBars looking for the first subsequent close
		// back on the original side.
		extreme := d.extremeAt(bar, kind)
		end := i + d.cfg.MaxBreakBars
		if end >= len(candles) {
			end = len(candles) - 1
		}
		for j := i + 1; j <= end; j++ {
			cur := d.extremeAt(candles[j], kind)
			if (kind == types.FBAbove && cur.GreaterThan(extreme)) ||
				(kind == types.FBBelow && cur.LessThan(extreme)) {
				extreme = cur
			}
			reverted := (kind == types.FBAbove && candles[j].Close.LessThanOrEqual(level)) ||
				(kind == types.FBBelow && candles[j].Close.GreaterThanOrEqual(level))
			if reverted {
				fb, ok := d.buildWithExtreme(candles, level, i, j, kind, extreme)
				return fb, ok
			}
		}
		// No reversal within the window from this pierce: not a false
		// breakout from this bar; continue scanning later bars.
	}
	return types.FalseBreakout{}, false
}

func (d *FalseBreakoutDetector) extremeAt(c types.Candle, kind types.FBKind) decimal.Decimal {
	if kind == types.FBAbove {
		return c.High
	}
	return c.Low
}

func (d *FalseBreakoutDetector) build(candles types.Candles, level decimal.Decimal, breakIdx, reversalIdx int, kind types.FBKind) (types.FalseBreakout, bool) {
	extreme := d.extremeAt(candles[breakIdx], kind)
	return d.buildWithExtreme(candles, level, breakIdx, reversalIdx, kind, extreme)
}

func (d *FalseBreakoutDetector) buildWithExtreme(candles types.Candles, level decimal.Decimal, breakIdx, reversalIdx int, kind types.FBKind, extreme decimal.Decimal) (types.FalseBreakout, bool) {
	var wick decimal.Decimal
	if kind == types.FBAbove {
		wick = extreme.Sub(level)
	} else {
		wick = level.Sub(extreme)
	}

	if breakIdx >= len(d.atr) {
		// Open Question #1: explicit bounds check, skip rather than an
		// incorrect comparison.
		return types.FalseBreakout{}, false
	}
	atrAtBreak := d.atr[breakIdx]
	minWick := d.cfg.MinWickATRMult.Mul(atrAtBreak)
	if wick.LessThan(minWick) {
		return types.FalseBreakout{}, false
	}

	spike := d.volumeSpike(candles, breakIdx)
	if d.cfg.RequireVolumeSpike && !spike {
		return types.FalseBreakout{}, false
	}

	return types.FalseBreakout{
		Kind:          kind,
		LevelPrice:    level,
		BreakIndex:    breakIdx,
		ExtremePrice:  extreme,
		ReversalIndex: reversalIdx,
		ReversalClose: candles[reversalIdx].Close,
		WickSize:      wick,
		VolumeSpike:   spike,
	}, true
}

func (d *FalseBreakoutDetector) volumeSpike(candles types.Candles, i int) bool {
	if i < d.cfg.VolumeWindow {
		return false
	}
	var sum float64
	for j := i - d.cfg.VolumeWindow; j < i; j++ {
		sum += candles[j].Volume
	}
	mean := sum / float64(d.cfg.VolumeWindow)
	threshold := d.cfg.VolumeSpikeMult
	thresholdF, _ := threshold.Float64()
	return candles[i].Volume >= thresholdF*mean
}
