package conditions

import (
	"fmt"

	"github.com/atlas-desktop/structurelab/internal/structure"
)

// Detectors bundles the per-strategy-table structure detectors a condition
// constructor may need to bind to (§4.7: strategy load time is when these
// are built, once, and shared by every condition instance for that table).
type Detectors struct {
	Swings    *structure.SwingDetector
	Breaks    *structure.BreakDetector
	Ranges    *structure.RangeDetector
	FB        *structure.FalseBreakoutDetector
	Sweep     *structure.FalseBreakoutDetector
	Analyzer  *structure.StructureAnalyzer
}

// Params is the decoded parameter bag for a single condition document entry
// (§4.7's "type string -> constructor" closed registry). The strategy
// loader populates only the fields relevant to Type.
type Params map[string]interface{}

// ConstructorFunc builds a Condition from its decoded parameters and the
// shared detector bundle for the owning strategy's table.
type ConstructorFunc func(p Params, d *Detectors) (Condition, error)

// Registry is the closed type_string -> constructor map referenced by the
// strategy loader. It is intentionally closed (no plugin registration at
// runtime): every condition type the document format supports is wired up
// in NewRegistry.
type Registry struct {
	constructors map[string]ConstructorFunc
}

// NewRegistry returns the registry populated with every supported
// condition type.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]ConstructorFunc)}
	r.register("price_above", buildPriceAbove)
	r.register("price_below", buildPriceBelow)
	r.register("price_near", buildPriceNear)
	r.register("price_in_range", buildPriceInRange)
	r.register("price_crossed", buildPriceCrossed)
	r.register("candle_direction", buildCandleDirection)
	r.register("consecutive_candles", buildConsecutiveCandles)
	r.register("ema_alignment", buildEMAAlignment)
	r.register("price_above_ema", buildPriceAboveEMA)
	r.register("price_below_ema", buildPriceBelowEMA)
	r.register("rsi_level", buildRSILevel)
	r.register("vwap_slope", buildVWAPSlope)
	r.register("price_above_vwap", buildPriceAboveVWAP)
	r.register("price_below_vwap", buildPriceBelowVWAP)
	r.register("volume_spike", buildVolumeSpike)
	r.register("adx_trending", buildADXTrending)
	r.register("macd_crossover", buildMACDCrossover)
	r.register("bos_occurred", buildBOSOccurred)
	r.register("msb_occurred", buildMSBOccurred)
	r.register("in_range", buildInRangeCondition)
	r.register("at_75_fib_level", buildAt75FibLevel)
	r.register("at_25_fib_level", buildAt25FibLevel)
	r.register("false_breakout_occurred", buildFalseBreakoutOccurred)
	r.register("liquidity_sweep_occurred", buildLiquiditySweepOccurred)
	r.register("in_uptrend", buildInUptrend)
	r.register("in_downtrend", buildInDowntrend)
	r.register("is_ranging", buildIsRanging)
	r.register("retest_occurred", buildRetestOccurred)
	return r
}

func (r *Registry) register(typeName string, fn ConstructorFunc) {
	r.constructors[typeName] = fn
}

// Build looks up typeName's constructor and invokes it, returning an error
// for an unknown typeName or whatever error the constructor reports. The
// strategy loader prunes unknown types with a warning before Build is
// reached, so at strategy build time only constructor errors surface, and
// Template.Build treats them as fatal to the whole strategy.
func (r *Registry) Build(typeName string, p Params, d *Detectors) (Condition, error) {
	fn, ok := r.constructors[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown condition type %q", typeName)
	}
	return fn(p, d)
}

// Known reports whether typeName has a registered constructor.
func (r *Registry) Known(typeName string) bool {
	_, ok := r.constructors[typeName]
	return ok
}
