package conditions

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func buildPriceAbove(p Params, d *Detectors) (Condition, error) {
	level, err := levelParam(p, "level")
	if err != nil {
		return nil, err
	}
	return &PriceAbove{Level: level}, nil
}

func buildPriceBelow(p Params, d *Detectors) (Condition, error) {
	level, err := levelParam(p, "level")
	if err != nil {
		return nil, err
	}
	return &PriceBelow{Level: level}, nil
}

func buildPriceNear(p Params, d *Detectors) (Condition, error) {
	level, err := levelParam(p, "level")
	if err != nil {
		return nil, err
	}
	tol := decimalParamOr(p, "tolerance_pct", decimal.NewFromFloat(0.25))
	return &PriceNear{Level: level, TolerancePct: tol}, nil
}

func buildPriceInRange(p Params, d *Detectors) (Condition, error) {
	low, err := decimalParam(p, "low")
	if err != nil {
		return nil, err
	}
	high, err := decimalParam(p, "high")
	if err != nil {
		return nil, err
	}
	return &PriceInRange{Low: low, High: high}, nil
}

func buildPriceCrossed(p Params, d *Detectors) (Condition, error) {
	level, err := levelParam(p, "level")
	if err != nil {
		return nil, err
	}
	dir, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	return &PriceCrossed{Level: level, Direction: CrossDirection(dir)}, nil
}

func buildCandleDirection(p Params, d *Detectors) (Condition, error) {
	want, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	return &CandleDirection{Want: CandleDir(want)}, nil
}

func buildConsecutiveCandles(p Params, d *Detectors) (Condition, error) {
	dir, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	count, err := intParam(p, "count")
	if err != nil {
		return nil, err
	}
	return &ConsecutiveCandles{Direction: CandleDir(dir), Count: count}, nil
}

func buildEMAAlignment(p Params, d *Detectors) (Condition, error) {
	dir, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	periods, err := intSliceParam(p, "periods")
	if err != nil {
		return nil, err
	}
	return &EMAAlignment{Direction: TrendDirection(dir), Periods: periods}, nil
}

func buildPriceAboveEMA(p Params, d *Detectors) (Condition, error) {
	period, err := intParam(p, "period")
	if err != nil {
		return nil, err
	}
	return &PriceAboveEMA{Period: period}, nil
}

func buildPriceBelowEMA(p Params, d *Detectors) (Condition, error) {
	period, err := intParam(p, "period")
	if err != nil {
		return nil, err
	}
	return &PriceBelowEMA{Period: period}, nil
}

func buildRSILevel(p Params, d *Detectors) (Condition, error) {
	zone, err := stringParam(p, "zone")
	if err != nil {
		return nil, err
	}
	period, err := intParam(p, "period")
	if err != nil {
		return nil, err
	}
	oversold := decimalParamOr(p, "oversold", decimal.NewFromInt(30))
	overbought := decimalParamOr(p, "overbought", decimal.NewFromInt(70))
	return &RSILevel{Zone: RSIZone(zone), Period: period, Oversold: oversold, Overbought: overbought}, nil
}

func buildVWAPSlope(p Params, d *Detectors) (Condition, error) {
	dir, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	slopePeriod, err := intParam(p, "slope_period")
	if err != nil {
		return nil, err
	}
	return &VWAPSlope{Direction: TrendDirection(dir), SlopePeriod: slopePeriod}, nil
}

func buildPriceAboveVWAP(p Params, d *Detectors) (Condition, error) {
	return &PriceAboveVWAP{}, nil
}

func buildPriceBelowVWAP(p Params, d *Detectors) (Condition, error) {
	return &PriceBelowVWAP{}, nil
}

func buildVolumeSpike(p Params, d *Detectors) (Condition, error) {
	threshold := decimalParamOr(p, "threshold", decimal.NewFromFloat(2.0))
	period := intParamOr(p, "period", 20)
	return &VolumeSpikeCondition{Threshold: threshold, Period: period}, nil
}

func buildADXTrending(p Params, d *Detectors) (Condition, error) {
	threshold := decimalParamOr(p, "threshold", decimal.NewFromInt(25))
	period := intParamOr(p, "period", 14)
	return &ADXTrending{Threshold: threshold, Period: period}, nil
}

func buildMACDCrossover(p Params, d *Detectors) (Condition, error) {
	dir, err := stringParam(p, "direction")
	if err != nil {
		return nil, err
	}
	fast := intParamOr(p, "fast", 12)
	slow := intParamOr(p, "slow", 26)
	signal := intParamOr(p, "signal", 9)
	return &MACDCrossover{Direction: CrossDirection(dir), Fast: fast, Slow: slow, Signal: signal}, nil
}

func requireDetector(name string, ok bool) error {
	if !ok {
		return fmt.Errorf("condition requires a %s detector bound to this strategy table", name)
	}
	return nil
}

func buildBOSOccurred(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("break", d != nil && d.Breaks != nil); err != nil {
		return nil, err
	}
	dir := stringParamOr(p, "direction", "")
	lookback := intParamOr(p, "lookback", 10)
	return &BOSOccurred{Detector: d.Breaks, Direction: BreakDirection(dir), Lookback: lookback}, nil
}

func buildMSBOccurred(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("break", d != nil && d.Breaks != nil); err != nil {
		return nil, err
	}
	dir := stringParamOr(p, "direction", "")
	lookback := intParamOr(p, "lookback", 10)
	return &MSBOccurred{Detector: d.Breaks, Direction: BreakDirection(dir), Lookback: lookback}, nil
}

func buildInRangeCondition(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("range", d != nil && d.Ranges != nil); err != nil {
		return nil, err
	}
	minTouches := intParamOr(p, "min_touches", 4)
	return &InRangeCondition{Detector: d.Ranges, MinTouches: minTouches}, nil
}

func buildAt75FibLevel(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("range", d != nil && d.Ranges != nil); err != nil {
		return nil, err
	}
	tol := decimalParamOr(p, "tolerance_pct", decimal.NewFromFloat(1.0))
	return &At75FibLevel{Detector: d.Ranges, TolerancePct: tol}, nil
}

func buildAt25FibLevel(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("range", d != nil && d.Ranges != nil); err != nil {
		return nil, err
	}
	tol := decimalParamOr(p, "tolerance_pct", decimal.NewFromFloat(1.0))
	return &At25FibLevel{Detector: d.Ranges, TolerancePct: tol}, nil
}

func buildFalseBreakoutOccurred(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("false breakout", d != nil && d.FB != nil); err != nil {
		return nil, err
	}
	if err := requireDetector("range", d != nil && d.Ranges != nil); err != nil {
		return nil, err
	}
	dir := stringParamOr(p, "direction", "")
	lookback := intParamOr(p, "lookback", 10)
	return &FalseBreakoutOccurred{FBDetector: d.FB, RangeDetector: d.Ranges, Direction: BreakDirection(dir), Lookback: lookback}, nil
}

func buildLiquiditySweepOccurred(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("liquidity sweep", d != nil && d.Sweep != nil); err != nil {
		return nil, err
	}
	if err := requireDetector("range", d != nil && d.Ranges != nil); err != nil {
		return nil, err
	}
	dir := stringParamOr(p, "direction", "")
	lookback := intParamOr(p, "lookback", 10)
	return &FalseBreakoutOccurred{FBDetector: d.Sweep, RangeDetector: d.Ranges, Direction: BreakDirection(dir), Lookback: lookback}, nil
}

func buildInUptrend(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("structure analyzer", d != nil && d.Analyzer != nil); err != nil {
		return nil, err
	}
	return &InUptrend{Analyzer: d.Analyzer}, nil
}

func buildInDowntrend(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("structure analyzer", d != nil && d.Analyzer != nil); err != nil {
		return nil, err
	}
	return &InDowntrend{Analyzer: d.Analyzer}, nil
}

func buildIsRanging(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("structure analyzer", d != nil && d.Analyzer != nil); err != nil {
		return nil, err
	}
	return &IsRanging{Analyzer: d.Analyzer}, nil
}

func buildRetestOccurred(p Params, d *Detectors) (Condition, error) {
	if err := requireDetector("break", d != nil && d.Breaks != nil); err != nil {
		return nil, err
	}
	lookback := intParamOr(p, "lookback", 10)
	tol := decimalParamOr(p, "tolerance_pct", decimal.NewFromFloat(0.25))
	return &RetestOccurred{Detector: d.Breaks, Lookback: lookback, TolerancePct: tol}, nil
}
