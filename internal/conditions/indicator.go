package conditions

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// TrendDirection is the ordering an EMA-alignment condition requires.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// EMAAlignment is True when the EMA series for Periods are strictly
// ordered (ascending for Direction=up, descending for down) on the last
// bar.
type EMAAlignment struct {
	Direction TrendDirection
	Periods   []int
}

// RequireIndicators registers every EMA series this condition reads.
func (c *EMAAlignment) RequireIndicators(b *indicators.Builder) {
	for _, p := range c.Periods {
		b.WithEMA(p)
	}
}

func (c *EMAAlignment) Name() string { return "ema_alignment" }

func (c *EMAAlignment) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 || len(c.Periods) < 2 {
		return types.NeutralResult(c.Name(), "insufficient setup")
	}
	last := len(candles) - 1
	values := make([]decimal.Decimal, len(c.Periods))
	for i, p := range c.Periods {
		v, ok := ctx.SeriesAt(indicators.EMAKey(p), last)
		if !ok {
			return types.NeutralResult(c.Name(), fmt.Sprintf("missing ema_%d", p))
		}
		values[i] = v
	}
	for i := 1; i < len(values); i++ {
		if c.Direction == TrendUp && !values[i-1].GreaterThan(values[i]) {
			return types.FalseResult(c.Name(), "not strictly ascending", nil)
		}
		if c.Direction == TrendDown && !values[i-1].LessThan(values[i]) {
			return types.FalseResult(c.Name(), "not strictly descending", nil)
		}
	}
	return types.TrueResult(c.Name(), "aligned", nil)
}

// PriceAboveEMA is True when the last close is above the EMA(Period).
type PriceAboveEMA struct {
	Period int
}

// RequireIndicators registers the EMA series this condition reads.
func (c *PriceAboveEMA) RequireIndicators(b *indicators.Builder) { b.WithEMA(c.Period) }

func (c *PriceAboveEMA) Name() string { return fmt.Sprintf("price_above_ema_%d", c.Period) }

func (c *PriceAboveEMA) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	last := len(candles) - 1
	ema, ok := ctx.SeriesAt(indicators.EMAKey(c.Period), last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing ema series")
	}
	if candles[last].Close.GreaterThan(ema) {
		return types.TrueResult(c.Name(), "price above ema", map[string]interface{}{"ema": ema.String()})
	}
	return types.FalseResult(c.Name(), "price not above ema", map[string]interface{}{"ema": ema.String()})
}

// PriceBelowEMA is True when the last close is below the EMA(Period).
type PriceBelowEMA struct {
	Period int
}

// RequireIndicators registers the EMA series this condition reads.
func (c *PriceBelowEMA) RequireIndicators(b *indicators.Builder) { b.WithEMA(c.Period) }

func (c *PriceBelowEMA) Name() string { return fmt.Sprintf("price_below_ema_%d", c.Period) }

func (c *PriceBelowEMA) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	last := len(candles) - 1
	ema, ok := ctx.SeriesAt(indicators.EMAKey(c.Period), last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing ema series")
	}
	if candles[last].Close.LessThan(ema) {
		return types.TrueResult(c.Name(), "price below ema", map[string]interface{}{"ema": ema.String()})
	}
	return types.FalseResult(c.Name(), "price not below ema", map[string]interface{}{"ema": ema.String()})
}

// RSIZone is the zone an RSILevel condition checks for.
type RSIZone string

const (
	RSIOversold  RSIZone = "oversold"
	RSIOverbought RSIZone = "overbought"
	RSINeutral   RSIZone = "neutral"
)

// RSILevel is True when RSI(Period) is in the requested Zone.
type RSILevel struct {
	Zone       RSIZone
	Period     int
	Oversold   decimal.Decimal
	Overbought decimal.Decimal
}

// RequireIndicators registers the RSI series this condition reads.
func (c *RSILevel) RequireIndicators(b *indicators.Builder) { b.WithRSI(c.Period) }

func (c *RSILevel) Name() string { return "rsi_level" }

func (c *RSILevel) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	last := len(candles) - 1
	if last < c.Period {
		return types.NeutralResult(c.Name(), "insufficient history")
	}
	rsi, ok := ctx.SeriesAt(indicators.RSIKey(c.Period), last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing rsi series")
	}
	values := map[string]interface{}{"rsi": rsi.String()}
	switch c.Zone {
	case RSIOversold:
		if rsi.LessThanOrEqual(c.Oversold) {
			return types.TrueResult(c.Name(), "oversold", values)
		}
	case RSIOverbought:
		if rsi.GreaterThanOrEqual(c.Overbought) {
			return types.TrueResult(c.Name(), "overbought", values)
		}
	case RSINeutral:
		if rsi.GreaterThan(c.Oversold) && rsi.LessThan(c.Overbought) {
			return types.TrueResult(c.Name(), "neutral zone", values)
		}
	}
	return types.FalseResult(c.Name(), "not in zone", values)
}

// VWAPSlope is True when the VWAP series is rising (up) or falling (down)
// over the last SlopePeriod bars.
type VWAPSlope struct {
	Direction   TrendDirection
	SlopePeriod int
}

// RequireIndicators registers the VWAP series this condition reads.
func (c *VWAPSlope) RequireIndicators(b *indicators.Builder) { b.WithVWAP() }

func (c *VWAPSlope) Name() string { return "vwap_slope" }

func (c *VWAPSlope) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	last := len(candles) - 1
	if last < c.SlopePeriod {
		return types.NeutralResult(c.Name(), "insufficient history")
	}
	cur, ok1 := ctx.SeriesAt("vwap", last)
	prior, ok2 := ctx.SeriesAt("vwap", last-c.SlopePeriod)
	if !ok1 || !ok2 {
		return types.NeutralResult(c.Name(), "missing vwap series")
	}
	if c.Direction == TrendUp && cur.GreaterThan(prior) {
		return types.TrueResult(c.Name(), "vwap rising", nil)
	}
	if c.Direction == TrendDown && cur.LessThan(prior) {
		return types.TrueResult(c.Name(), "vwap falling", nil)
	}
	return types.FalseResult(c.Name(), "slope mismatch", nil)
}

// PriceAboveVWAP is True when the last close is above the VWAP.
type PriceAboveVWAP struct{}

// RequireIndicators registers the VWAP series this condition reads.
func (c *PriceAboveVWAP) RequireIndicators(b *indicators.Builder) { b.WithVWAP() }

func (c *PriceAboveVWAP) Name() string { return "price_above_vwap" }

func (c *PriceAboveVWAP) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	last := len(candles) - 1
	vwap, ok := ctx.SeriesAt("vwap", last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing vwap series")
	}
	if candles[last].Close.GreaterThan(vwap) {
		return types.TrueResult(c.Name(), "price above vwap", nil)
	}
	return types.FalseResult(c.Name(), "price not above vwap", nil)
}

// PriceBelowVWAP is True when the last close is below the VWAP.
type PriceBelowVWAP struct{}

// RequireIndicators registers the VWAP series this condition reads.
func (c *PriceBelowVWAP) RequireIndicators(b *indicators.Builder) { b.WithVWAP() }

func (c *PriceBelowVWAP) Name() string { return "price_below_vwap" }

func (c *PriceBelowVWAP) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(candles) == 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	last := len(candles) - 1
	vwap, ok := ctx.SeriesAt("vwap", last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing vwap series")
	}
	if candles[last].Close.LessThan(vwap) {
		return types.TrueResult(c.Name(), "price below vwap", nil)
	}
	return types.FalseResult(c.Name(), "price not below vwap", nil)
}

// VolumeSpikeCondition is True when volume on the last bar exceeds
// Threshold times the rolling mean over Period prior bars.
type VolumeSpikeCondition struct {
	Threshold decimal.Decimal
	Period    int
}

func (c *VolumeSpikeCondition) Name() string { return "volume_spike" }

func (c *VolumeSpikeCondition) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	last := len(candles) - 1
	if last < 0 {
		return types.NeutralResult(c.Name(), "no bars")
	}
	mean, ok := indicators.RollingVolumeAverage(candles, last, c.Period)
	if !ok {
		return types.NeutralResult(c.Name(), "insufficient history")
	}
	thresholdF, _ := c.Threshold.Float64()
	if candles[last].Volume >= thresholdF*mean {
		return types.TrueResult(c.Name(), "volume spike", nil)
	}
	return types.FalseResult(c.Name(), "no volume spike", nil)
}

// ADXTrending is True when ADX(Period) is above Threshold.
type ADXTrending struct {
	Threshold decimal.Decimal
	Period    int
}

// RequireIndicators registers the ADX series this condition reads.
func (c *ADXTrending) RequireIndicators(b *indicators.Builder) { b.WithADX(c.Period) }

func (c *ADXTrending) Name() string { return "adx_trending" }

func (c *ADXTrending) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	last := len(candles) - 1
	if last < c.Period*2 {
		return types.NeutralResult(c.Name(), "insufficient history")
	}
	adx, ok := ctx.SeriesAt(fmt.Sprintf("adx_%d", c.Period), last)
	if !ok {
		return types.NeutralResult(c.Name(), "missing adx series")
	}
	if adx.GreaterThan(c.Threshold) {
		return types.TrueResult(c.Name(), "trending", nil)
	}
	return types.FalseResult(c.Name(), "not trending", nil)
}

// MACDCrossover is True when the MACD line crosses the signal line in
// Direction on the last bar.
type MACDCrossover struct {
	Direction          CrossDirection
	Fast, Slow, Signal int
}

// RequireIndicators registers the MACD series this condition reads.
func (c *MACDCrossover) RequireIndicators(b *indicators.Builder) {
	b.WithMACD(c.Fast, c.Slow, c.Signal)
}

func (c *MACDCrossover) Name() string { return "macd_crossover" }

func (c *MACDCrossover) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	last := len(candles) - 1
	if last < 1 {
		return types.NeutralResult(c.Name(), "insufficient bars")
	}
	macdCur, ok1 := ctx.SeriesAt("macd", last)
	sigCur, ok2 := ctx.SeriesAt("macd_signal", last)
	macdPrev, ok3 := ctx.SeriesAt("macd", last-1)
	sigPrev, ok4 := ctx.SeriesAt("macd_signal", last-1)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return types.NeutralResult(c.Name(), "missing macd series")
	}
	var crossed bool
	if c.Direction == CrossAbove {
		crossed = macdPrev.LessThanOrEqual(sigPrev) && macdCur.GreaterThan(sigCur)
	} else {
		crossed = macdPrev.GreaterThanOrEqual(sigPrev) && macdCur.LessThan(sigCur)
	}
	if crossed {
		return types.TrueResult(c.Name(), "macd crossed", nil)
	}
	return types.FalseResult(c.Name(), "no macd cross", nil)
}
