package structure

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// BreakConfig configures the BOS/MSB detector and its retest scan (§4.4).
type BreakConfig struct {
	UseClose         bool
	ConfirmationBars int
	MSBWindowBars    int
	MaxRetestBars    int
	RetestTolerancePct decimal.Decimal
}

// DefaultBreakConfig returns reasonable defaults.
func DefaultBreakConfig() BreakConfig {
	return BreakConfig{
		UseClose:           false,
		ConfirmationBars:   1,
		MSBWindowBars:      20,
		MaxRetestBars:      20,
		RetestTolerancePct: decimal.NewFromFloat(0.25),
	}
}

// BreakDetector emits BOS and MSB/CHOCH structure breaks from confirmed
// swings, each swing contributing at most one break (legacy Open Question
// #3: the cap is preserved).
type BreakDetector struct {
	cfg    BreakConfig
	swings *SwingDetector
}

// NewBreakDetector creates a detector backed by a swing detector.
func NewBreakDetector(cfg BreakConfig, swings *SwingDetector) *BreakDetector {
	return &BreakDetector{cfg: cfg, swings: swings}
}

// DetectBOS returns BOS breaks (trend continuation: break direction agrees
// with the immediately preceding same-direction swing structure).
func (d *BreakDetector) DetectBOS(candles types.Candles) []types.StructureBreak {
	all := d.detectAll(candles)
	var out []types.StructureBreak
	for _, b := range all {
		if b.Kind == types.BreakBOSBull || b.Kind == types.BreakBOSBear {
			out = append(out, b)
		}
	}
	return out
}

// DetectMSB returns MSB/CHOCH breaks (reversal: the preceding regime
// pointed the other way).
func (d *BreakDetector) DetectMSB(candles types.Candles) []types.StructureBreak {
	all := d.detectAll(candles)
	var out []types.StructureBreak
	for _, b := range all {
		if b.Kind == types.BreakMSBBull || b.Kind == types.BreakMSBBear {
			out = append(out, b)
		}
	}
	return out
}

func (d *BreakDetector) detectAll(candles types.Candles) []types.StructureBreak {
	swings := d.swings.Detect(candles)
	var breaks []types.StructureBreak

	for si, s := range swings {
		if s.Kind == types.SwingHigh {
			b, ok := d.scanForBreak(candles, swings, si, s, true)
			if ok {
				breaks = append(breaks, b)
			}
		} else {
			b, ok := d.scanForBreak(candles, swings, si, s, false)
			if ok {
				breaks = append(breaks, b)
			}
		}
	}
	return breaks
}

// scanForBreak scans forward from s.Index+ConfirmationBars for the first
// bar whose break price crosses level L = s.Price, classifying the result
// as BOS or MSB per the preceding swing structure.
func (d *BreakDetector) scanForBreak(candles types.Candles, swings []types.SwingPoint, swingIdx int, s types.SwingPoint, bullSide bool) (types.StructureBreak, bool) {
	level := s.Price
	start := s.Index + d.cfg.ConfirmationBars
	if start < 1 {
		start = 1
	}

	for i := start; i < len(candles); i++ {
		var breakPrice decimal.Decimal
		var crossed bool
		if bullSide {
			breakPrice = candles[i].High
			if d.cfg.UseClose {
				breakPrice = candles[i].Close
			}
			crossed = breakPrice.GreaterThan(level)
		} else {
			breakPrice = candles[i].Low
			if d.cfg.UseClose {
				breakPrice = candles[i].Close
			}
			crossed = breakPrice.LessThan(level)
		}
		if !crossed {
			continue
		}

		kind, ok := d.classify(swings, swingIdx, i, bullSide)
		if !ok {
			return types.StructureBreak{}, false
		}
		return types.StructureBreak{
			Kind:        kind,
			BreakIndex:  i,
			BreakPrice:  level,
			BreakClose:  candles[i].Close,
			SwingBroken: s,
		}, true
	}
	return types.StructureBreak{}, false
}

// classify inspects the most recent swing strictly before breakIndex, and
// the MSBWindowBars-wide window before it, to decide BOS vs MSB.
func (d *BreakDetector) classify(swings []types.SwingPoint, swingIdx, breakIndex int, bullSide bool) (types.BreakKind, bool) {
	var mostRecent *types.SwingPoint
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].ConfirmedAtIndex <= breakIndex && swings[i].Index < breakIndex {
			mostRecent = &swings[i]
			break
		}
	}

	if bullSide {
		if mostRecent != nil && (mostRecent.Structure == types.StructureHH || mostRecent.Structure == types.StructureHL) {
			return types.BreakBOSBull, true
		}
		windowStart := swings[swingIdx].Index - d.cfg.MSBWindowBars
		count := 0
		for _, s := range swings {
			if s.Index >= windowStart && s.Index < breakIndex && (s.Structure == types.StructureLH || s.Structure == types.StructureLL) {
				count++
			}
		}
		if count >= 2 {
			return types.BreakMSBBull, true
		}
		return "", false
	}

	if mostRecent != nil && (mostRecent.Structure == types.StructureLH || mostRecent.Structure == types.StructureLL) {
		return types.BreakBOSBear, true
	}
	windowStart := swings[swingIdx].Index - d.cfg.MSBWindowBars
	count := 0
	for _, s := range swings {
		if s.Index >= windowStart && s.Index < breakIndex && (s.Structure == types.StructureHH || s.Structure == types.StructureHL) {
			count++
		}
	}
	if count >= 2 {
		return types.BreakMSBBear, true
	}
	return "", false
}

// DetectRetest scans the MaxRetestBars bars after a StructureBreak for the
// first bar touching back within tolerance of the break level, returning
// the updated break (with RetestIndex/RetestPrice set) or the original if
// none is found.
func (d *BreakDetector) DetectRetest(candles types.Candles, b types.StructureBreak) types.StructureBreak {
	tolerance := b.BreakPrice.Mul(d.cfg.RetestTolerancePct).Div(decimal.NewFromInt(100))
	end := b.BreakIndex + d.cfg.MaxRetestBars
	if end > len(candles) {
		end = len(candles)
	}
	bullish := b.IsBullish()
	for i := b.BreakIndex + 1; i < end; i++ {
		var diff decimal.Decimal
		var price decimal.Decimal
		if bullish {
			price = candles[i].Low
			diff = price.Sub(b.BreakPrice).Abs()
		} else {
			price = candles[i].High
			diff = price.Sub(b.BreakPrice).Abs()
		}
		if diff.LessThanOrEqual(tolerance) {
			idx := i
			p := price
			b.RetestIndex = &idx
			b.RetestPrice = &p
			return b
		}
	}
	return b
}
