package conditions

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// ComputedLevels is the small registry of pure level derivations a Level's
// Computed field may index (design note: "swing_low", "range_mid", etc).
var ComputedLevels = map[string]ComputedLevelFunc{}

func resolveLevel(l Level, candles types.Candles, ctx *indicators.Context) (decimal.Decimal, bool) {
	return l.Resolve(candles, ctx, ComputedLevels)
}

// PriceAbove is True when the last close is above the resolved level.
type PriceAbove struct {
	Level Level
}

func (c *PriceAbove) Name() string { return "price_above" }

func (c *PriceAbove) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	level, ok := resolveLevel(c.Level, candles, ctx)
	if !ok {
		return types.NeutralResult(c.Name(), "level unresolved")
	}
	close := candles[len(candles)-1].Close
	values := map[string]interface{}{"close": close.String(), "level": level.String()}
	if close.GreaterThan(level) {
		return types.TrueResult(c.Name(), "close above level", values)
	}
	return types.FalseResult(c.Name(), "close not above level", values)
}

// PriceBelow is True when the last close is below the resolved level.
type PriceBelow struct {
	Level Level
}

func (c *PriceBelow) Name() string { return "price_below" }

func (c *PriceBelow) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	level, ok := resolveLevel(c.Level, candles, ctx)
	if !ok {
		return types.NeutralResult(c.Name(), "level unresolved")
	}
	close := candles[len(candles)-1].Close
	values := map[string]interface{}{"close": close.String(), "level": level.String()}
	if close.LessThan(level) {
		return types.TrueResult(c.Name(), "close below level", values)
	}
	return types.FalseResult(c.Name(), "close not below level", values)
}

// PriceNear is True when the last close is within TolerancePct of the
// resolved level.
type PriceNear struct {
	Level        Level
	TolerancePct decimal.Decimal
}

func (c *PriceNear) Name() string { return "price_near" }

func (c *PriceNear) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	level, ok := resolveLevel(c.Level, candles, ctx)
	if !ok || level.IsZero() {
		return types.NeutralResult(c.Name(), "level unresolved")
	}
	close := candles[len(candles)-1].Close
	tolerance := level.Mul(c.TolerancePct).Div(decimal.NewFromInt(100)).Abs()
	diff := close.Sub(level).Abs()
	values := map[string]interface{}{"close": close.String(), "level": level.String()}
	if diff.LessThanOrEqual(tolerance) {
		return types.TrueResult(c.Name(), "close near level", values)
	}
	return types.FalseResult(c.Name(), "close not near level", values)
}

// PriceInRange is True when the last close lies within [Low, High].
type PriceInRange struct {
	Low, High decimal.Decimal
}

func (c *PriceInRange) Name() string { return "price_in_range" }

func (c *PriceInRange) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	close := candles[len(candles)-1].Close
	if close.GreaterThanOrEqual(c.Low) && close.LessThanOrEqual(c.High) {
		return types.TrueResult(c.Name(), "close in range", nil)
	}
	return types.FalseResult(c.Name(), "close outside range", nil)
}

// CrossDirection is the direction a PriceCrossed condition watches for.
type CrossDirection string

const (
	CrossAbove CrossDirection = "above"
	CrossBelow CrossDirection = "below"
)

// PriceCrossed detects a prev/curr transition across the resolved level on
// the last bar. Requires at least 2 bars.
type PriceCrossed struct {
	Level     Level
	Direction CrossDirection
}

func (c *PriceCrossed) Name() string { return fmt.Sprintf("price_crossed_%s", c.Direction) }

func (c *PriceCrossed) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) < 2 {
		return types.NeutralResult(c.Name(), "insufficient bars")
	}
	level, ok := resolveLevel(c.Level, candles, ctx)
	if !ok {
		return types.NeutralResult(c.Name(), "level unresolved")
	}
	prev := candles[len(candles)-2].Close
	cur := candles[len(candles)-1].Close
	var crossed bool
	if c.Direction == CrossAbove {
		crossed = prev.LessThanOrEqual(level) && cur.GreaterThan(level)
	} else {
		crossed = prev.GreaterThanOrEqual(level) && cur.LessThan(level)
	}
	if crossed {
		return types.TrueResult(c.Name(), "crossed", nil)
	}
	return types.FalseResult(c.Name(), "no cross", nil)
}

// CandleDir is a candle's bullish/bearish classification.
type CandleDir string

const (
	CandleBullish CandleDir = "bullish"
	CandleBearish CandleDir = "bearish"
)

// CandleDirection is True when the last candle's direction matches Want.
type CandleDirection struct {
	Want CandleDir
}

func (c *CandleDirection) Name() string { return "candle_direction" }

func (c *CandleDirection) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	bar := candles[len(candles)-1]
	bullish := bar.Close.GreaterThan(bar.Open)
	bearish := bar.Close.LessThan(bar.Open)
	if (c.Want == CandleBullish && bullish) || (c.Want == CandleBearish && bearish) {
		return types.TrueResult(c.Name(), "direction matches", nil)
	}
	return types.FalseResult(c.Name(), "direction mismatch", nil)
}

// ConsecutiveCandles is True when the last Count candles all match
// Direction.
type ConsecutiveCandles struct {
	Direction CandleDir
	Count     int
}

func (c *ConsecutiveCandles) Name() string { return "consecutive_candles" }

func (c *ConsecutiveCandles) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) < c.Count {
		return types.NeutralResult(c.Name(), "insufficient bars")
	}
	for i := len(candles) - c.Count; i < len(candles); i++ {
		bar := candles[i]
		bullish := bar.Close.GreaterThan(bar.Open)
		bearish := bar.Close.LessThan(bar.Open)
		if c.Direction == CandleBullish && !bullish {
			return types.FalseResult(c.Name(), "streak broken", nil)
		}
		if c.Direction == CandleBearish && !bearish {
			return types.FalseResult(c.Name(), "streak broken", nil)
		}
	}
	return types.TrueResult(c.Name(), "streak held", nil)
}
