// Package structure implements the market-structure analyzer: the swing
// detector, structure (regime) analyzer, range/Fibonacci detector, BOS/MSB
// detector, and false-breakout detector that back every interesting
// condition in the catalog.
package structure

import (
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// SwingConfig configures the opposite-side-break confirmation rule.
type SwingConfig struct {
	// UseClose selects close[i] as the break price instead of high[i]/low[i].
	UseClose bool
}

// DefaultSwingConfig returns the spec's implicit default (break on
// high/low, not close).
func DefaultSwingConfig() SwingConfig {
	return SwingConfig{UseClose: false}
}

// SwingDetector confirms swings by opposite-side break rather than N-bar
// lookaround (§4.1). It is a pure function of the candle prefix: calling
// Detect again on a longer prefix reproduces every previously emitted swing
// at the same index, then appends any new ones (monotonic append).
type SwingDetector struct {
	cfg SwingConfig
}

// NewSwingDetector creates a detector with the given configuration.
func NewSwingDetector(cfg SwingConfig) *SwingDetector {
	return &SwingDetector{cfg: cfg}
}

// Detect runs the opposite-side-break algorithm over candles[0..=last] and
// returns the ordered list of confirmed swings. Fewer than 3 bars yields no
// swings; the most recent unconfirmed pivot is never reported.
func (d *SwingDetector) Detect(candles types.Candles) []types.SwingPoint {
	if len(candles) < 3 {
		return nil
	}

	var swings []types.SwingPoint

	currentSwingHighPrice := candles[0].High
	currentSwingLowPrice := candles[0].Low
	highestSinceLowIdx := 0
	lowestSinceHighIdx := 0

	var lastSwingHigh, lastSwingLow types.SwingPoint
	var haveSwingHigh, haveSwingLow bool

	for i := 1; i < len(candles); i++ {
		if candles[i].High.GreaterThan(candles[highestSinceLowIdx].High) {
			highestSinceLowIdx = i
		}
		if candles[i].Low.LessThan(candles[lowestSinceHighIdx].Low) {
			lowestSinceHighIdx = i
		}

		breakUp := candles[i].High
		breakDown := candles[i].Low
		if d.cfg.UseClose {
			breakUp = candles[i].Close
			breakDown = candles[i].Close
		}

		if breakUp.GreaterThan(currentSwingHighPrice) {
			if lowestSinceHighIdx < i {
				label := types.StructureLL
				if !haveSwingLow || candles[lowestSinceHighIdx].Low.GreaterThan(lastSwingLow.Price) {
					label = types.StructureHL
				}
				sw := types.SwingPoint{
					Index:            lowestSinceHighIdx,
					Price:            candles[lowestSinceHighIdx].Low,
					Kind:             types.SwingLow,
					ConfirmedAtIndex: i,
					Structure:        label,
				}
				if !haveSwingLow {
					sw.Structure = types.StructureNone
				}
				swings = append(swings, sw)
				lastSwingLow = sw
				haveSwingLow = true
				currentSwingLowPrice = candles[lowestSinceHighIdx].Low
			}
			currentSwingHighPrice = candles[i].High
			highestSinceLowIdx = i
			lowestSinceHighIdx = i
			continue
		}

		if breakDown.LessThan(currentSwingLowPrice) {
			if highestSinceLowIdx < i {
				label := types.StructureLH
				if !haveSwingHigh || candles[highestSinceLowIdx].High.GreaterThan(lastSwingHigh.Price) {
					label = types.StructureHH
				}
				sw := types.SwingPoint{
					Index:            highestSinceLowIdx,
					Price:            candles[highestSinceLowIdx].High,
					Kind:             types.SwingHigh,
					ConfirmedAtIndex: i,
					Structure:        label,
				}
				if !haveSwingHigh {
					sw.Structure = types.StructureNone
				}
				swings = append(swings, sw)
				lastSwingHigh = sw
				haveSwingHigh = true
				currentSwingHighPrice = candles[highestSinceLowIdx].High
			}
			currentSwingLowPrice = candles[i].Low
			highestSinceLowIdx = i
			lowestSinceHighIdx = i
			continue
		}
	}

	return swings
}
