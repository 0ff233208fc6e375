package structure

import "github.com/atlas-desktop/structurelab/pkg/types"

// Regime is the classified market structure over the recent swing window.
type Regime string

const (
	RegimeUptrend   Regime = "uptrend"
	RegimeDowntrend Regime = "downtrend"
	RegimeRanging   Regime = "ranging"
)

// StructureAnalyzer classifies the current regime over the last <= 6
// swings (§4.2, with the Open Question #2 decision: explicit counts, not
// the legacy four-swing threshold).
type StructureAnalyzer struct {
	swings *SwingDetector
}

// NewStructureAnalyzer creates an analyzer backed by a swing detector.
func NewStructureAnalyzer(swings *SwingDetector) *StructureAnalyzer {
	return &StructureAnalyzer{swings: swings}
}

// KeyLevels holds the last two highs and last two lows used as reference
// levels by the caller.
type KeyLevels struct {
	LastHigh, PrevHigh types.SwingPoint
	LastLow, PrevLow   types.SwingPoint
	HaveLastHigh, HavePrevHigh bool
	HaveLastLow, HavePrevLow   bool
}

// Classify returns the current regime and key levels for the given candle
// prefix.
func (a *StructureAnalyzer) Classify(candles types.Candles) (Regime, KeyLevels) {
	swings := a.swings.Detect(candles)
	window := swings
	if len(window) > 6 {
		window = window[len(window)-6:]
	}

	var hasHH, hasHL, hasLH, hasLL bool
	var levels KeyLevels

	for i := len(window) - 1; i >= 0; i-- {
		s := window[i]
		switch s.Structure {
		case types.StructureHH:
			hasHH = true
		case types.StructureHL:
			hasHL = true
		case types.StructureLH:
			hasLH = true
		case types.StructureLL:
			hasLL = true
		}
		if s.Kind == types.SwingHigh {
			if !levels.HaveLastHigh {
				levels.LastHigh = s
				levels.HaveLastHigh = true
			} else if !levels.HavePrevHigh {
				levels.PrevHigh = s
				levels.HavePrevHigh = true
			}
		} else {
			if !levels.HaveLastLow {
				levels.LastLow = s
				levels.HaveLastLow = true
			} else if !levels.HavePrevLow {
				levels.PrevLow = s
				levels.HavePrevLow = true
			}
		}
	}

	switch {
	case hasHH && hasHL:
		return RegimeUptrend, levels
	case hasLH && hasLL:
		return RegimeDowntrend, levels
	default:
		return RegimeRanging, levels
	}
}
