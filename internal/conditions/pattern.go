package conditions

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// BreakDirection filters pattern conditions that care about bullish vs.
// bearish events; the zero value ("") means "either direction".
type BreakDirection string

const (
	BreakBullish BreakDirection = "bullish"
	BreakBearish BreakDirection = "bearish"
	BreakEither  BreakDirection = ""
)

// BOSOccurred is True when a BOS of the requested direction occurred within
// Lookback bars of the current bar.
type BOSOccurred struct {
	Detector  *structure.BreakDetector
	Direction BreakDirection
	Lookback  int
}

func (c *BOSOccurred) Name() string { return "bos_occurred" }

func (c *BOSOccurred) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	breaks := c.Detector.DetectBOS(candles)
	curBar := len(candles) - 1
	for i := len(breaks) - 1; i >= 0; i-- {
		b := breaks[i]
		if curBar-b.BreakIndex > c.Lookback {
			continue
		}
		if c.Direction == BreakBullish && b.Kind != types.BreakBOSBull {
			continue
		}
		if c.Direction == BreakBearish && b.Kind != types.BreakBOSBear {
			continue
		}
		return types.TrueResult(c.Name(), "BOS within lookback", map[string]interface{}{
			"break_index": b.BreakIndex, "kind": string(b.Kind),
		})
	}
	return types.FalseResult(c.Name(), "no BOS within lookback", nil)
}

// MSBOccurred is True when an MSB of the requested direction occurred
// within Lookback bars of the current bar.
type MSBOccurred struct {
	Detector  *structure.BreakDetector
	Direction BreakDirection
	Lookback  int
}

func (c *MSBOccurred) Name() string { return "msb_occurred" }

func (c *MSBOccurred) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	breaks := c.Detector.DetectMSB(candles)
	curBar := len(candles) - 1
	for i := len(breaks) - 1; i >= 0; i-- {
		b := breaks[i]
		if curBar-b.BreakIndex > c.Lookback {
			continue
		}
		if c.Direction == BreakBullish && b.Kind != types.BreakMSBBull {
			continue
		}
		if c.Direction == BreakBearish && b.Kind != types.BreakMSBBear {
			continue
		}
		return types.TrueResult(c.Name(), "MSB within lookback", map[string]interface{}{
			"break_index": b.BreakIndex, "kind": string(b.Kind),
		})
	}
	return types.FalseResult(c.Name(), "no MSB within lookback", nil)
}

// InRangeCondition is True when the current range has at least MinTouches
// combined touches.
type InRangeCondition struct {
	Detector   *structure.RangeDetector
	MinTouches int
}

func (c *InRangeCondition) Name() string { return "in_range" }

func (c *InRangeCondition) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	r, ok := c.Detector.Current(candles)
	if !ok {
		return types.NeutralResult(c.Name(), "no current range")
	}
	if r.HighTouches+r.LowTouches >= c.MinTouches {
		return types.TrueResult(c.Name(), "range touch threshold met", nil)
	}
	return types.FalseResult(c.Name(), "range touch threshold not met", nil)
}

// At75FibLevel is True when the last close sits within TolerancePct of the
// current range's 75% Fibonacci level.
type At75FibLevel struct {
	Detector     *structure.RangeDetector
	TolerancePct decimal.Decimal
}

func (c *At75FibLevel) Name() string { return "at_75_fib_level" }

func (c *At75FibLevel) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	r, ok := c.Detector.Current(candles)
	if !ok {
		return types.NeutralResult(c.Name(), "no current range")
	}
	close := candles[len(candles)-1].Close
	fib75 := r.Fib(decimal.NewFromFloat(0.75))
	values := map[string]interface{}{
		"fib_75":      fib75.String(),
		"range_high":  r.High.String(),
		"range_low":   r.Low.String(),
	}
	if structure.At75Level(r, close, c.TolerancePct) {
		return types.TrueResult(c.Name(), "at 75% fib level", values)
	}
	return types.FalseResult(c.Name(), "not at 75% fib level", values)
}

// At25FibLevel is True when the last close sits within TolerancePct of the
// current range's 25% Fibonacci level.
type At25FibLevel struct {
	Detector     *structure.RangeDetector
	TolerancePct decimal.Decimal
}

func (c *At25FibLevel) Name() string { return "at_25_fib_level" }

func (c *At25FibLevel) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	r, ok := c.Detector.Current(candles)
	if !ok {
		return types.NeutralResult(c.Name(), "no current range")
	}
	close := candles[len(candles)-1].Close
	fib25 := r.Fib(decimal.NewFromFloat(0.25))
	values := map[string]interface{}{
		"fib_25":     fib25.String(),
		"range_high": r.High.String(),
		"range_low":  r.Low.String(),
	}
	if structure.At25Level(r, close, c.TolerancePct) {
		return types.TrueResult(c.Name(), "at 25% fib level", values)
	}
	return types.FalseResult(c.Name(), "not at 25% fib level", values)
}

// FalseBreakoutOccurred is True when a false breakout of the requested
// direction at the current swing/range extreme occurred within Lookback
// bars.
type FalseBreakoutOccurred struct {
	FBDetector    *structure.FalseBreakoutDetector
	RangeDetector *structure.RangeDetector
	Direction     BreakDirection // Bullish => FBBelow (reversal up), Bearish => FBAbove
	Lookback      int
}

func (c *FalseBreakoutOccurred) Name() string { return "false_breakout_occurred" }

func (c *FalseBreakoutOccurred) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	r, ok := c.RangeDetector.Current(candles)
	if !ok {
		return types.NeutralResult(c.Name(), "no current range")
	}
	curBar := len(candles) - 1
	scanStart := curBar - c.Lookback
	if scanStart < 0 {
		scanStart = 0
	}

	if c.Direction != BreakBearish {
		if fb, found := c.FBDetector.DetectBelow(candles, r.Low, scanStart); found && curBar-fb.BreakIndex <= c.Lookback {
			return types.TrueResult(c.Name(), "false breakout below", map[string]interface{}{"break_index": fb.BreakIndex})
		}
	}
	if c.Direction != BreakBullish {
		if fb, found := c.FBDetector.DetectAbove(candles, r.High, scanStart); found && curBar-fb.BreakIndex <= c.Lookback {
			return types.TrueResult(c.Name(), "false breakout above", map[string]interface{}{"break_index": fb.BreakIndex})
		}
	}
	return types.FalseResult(c.Name(), "no false breakout within lookback", nil)
}

// InUptrend is True when the current regime is an uptrend.
type InUptrend struct {
	Analyzer *structure.StructureAnalyzer
}

func (c *InUptrend) Name() string { return "in_uptrend" }

func (c *InUptrend) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	regime, _ := c.Analyzer.Classify(candles)
	if regime == structure.RegimeUptrend {
		return types.TrueResult(c.Name(), "uptrend", nil)
	}
	return types.FalseResult(c.Name(), "not uptrend", nil)
}

// InDowntrend is True when the current regime is a downtrend.
type InDowntrend struct {
	Analyzer *structure.StructureAnalyzer
}

func (c *InDowntrend) Name() string { return "in_downtrend" }

func (c *InDowntrend) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	regime, _ := c.Analyzer.Classify(candles)
	if regime == structure.RegimeDowntrend {
		return types.TrueResult(c.Name(), "downtrend", nil)
	}
	return types.FalseResult(c.Name(), "not downtrend", nil)
}

// IsRanging is True when the current regime is ranging.
type IsRanging struct {
	Analyzer *structure.StructureAnalyzer
}

func (c *IsRanging) Name() string { return "is_ranging" }

func (c *IsRanging) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	regime, _ := c.Analyzer.Classify(candles)
	if regime == structure.RegimeRanging {
		return types.TrueResult(c.Name(), "ranging", nil)
	}
	return types.FalseResult(c.Name(), "not ranging", nil)
}

// RetestOccurred is True when a structure break within Lookback bars has a
// confirmed retest within TolerancePct.
type RetestOccurred struct {
	Detector     *structure.BreakDetector
	Lookback     int
	TolerancePct decimal.Decimal
}

func (c *RetestOccurred) Name() string { return "retest_occurred" }

func (c *RetestOccurred) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	curBar := len(candles) - 1
	breaks := append(c.Detector.DetectBOS(candles), c.Detector.DetectMSB(candles)...)
	for _, b := range breaks {
		if curBar-b.BreakIndex > c.Lookback {
			continue
		}
		retested := c.Detector.DetectRetest(candles, b)
		if retested.RetestIndex != nil {
			return types.TrueResult(c.Name(), "retest confirmed", map[string]interface{}{
				"retest_index": *retested.RetestIndex,
			})
		}
	}
	return types.FalseResult(c.Name(), "no retest within lookback", nil)
}
