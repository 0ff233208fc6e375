// Package indicators computes the pure, column-wise numeric transforms the
// market-structure analyzer and condition catalog depend on. Only the
// indicators that participate in structure analysis (ATR, rolling volume
// average) and the catalog's indicator-family conditions are implemented
// here; the rest of a production indicator library is assumed to exist as
// an external collaborator.
package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// EMA is a decimal exponential moving average accumulator.
type EMA struct {
	period     int
	multiplier decimal.Decimal
	current    decimal.Decimal
	count      int
}

// NewEMA creates an EMA accumulator for the given period.
func NewEMA(period int) *EMA {
	two := decimal.NewFromInt(2)
	p1 := decimal.NewFromInt(int64(period + 1))
	return &EMA{
		period:     period,
		multiplier: two.Div(p1),
	}
}

// Add feeds the next value into the accumulator and returns the new EMA.
func (e *EMA) Add(value decimal.Decimal) decimal.Decimal {
	e.count++
	if e.count == 1 {
		e.current = value
		return e.current
	}
	e.current = value.Sub(e.current).Mul(e.multiplier).Add(e.current)
	return e.current
}

// Current returns the last computed EMA value.
func (e *EMA) Current() decimal.Decimal { return e.current }

// Ready reports whether the accumulator has seen at least `period` values.
func (e *EMA) Ready() bool { return e.count >= e.period }

// SMA is a decimal simple moving average accumulator over a fixed window.
type SMA struct {
	period int
	values []decimal.Decimal
	sum    decimal.Decimal
}

// NewSMA creates an SMA accumulator for the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, values: make([]decimal.Decimal, 0, period)}
}

// Add feeds the next value into the accumulator and returns the new SMA.
func (s *SMA) Add(value decimal.Decimal) decimal.Decimal {
	s.values = append(s.values, value)
	s.sum = s.sum.Add(value)
	if len(s.values) > s.period {
		s.sum = s.sum.Sub(s.values[0])
		s.values = s.values[1:]
	}
	return s.Current()
}

// Current returns the last computed SMA value (zero if no values yet).
func (s *SMA) Current() decimal.Decimal {
	if len(s.values) == 0 {
		return decimal.Zero
	}
	return s.sum.Div(decimal.NewFromInt(int64(len(s.values))))
}

// Ready reports whether the window is full.
func (s *SMA) Ready() bool { return len(s.values) >= s.period }

// EMASeries computes the EMA of closes over the full candle table, one
// value per bar. Bars before the period has filled still receive a
// best-effort EMA value (seeded from the first close); callers that need a
// warm-up gate should consult len(series) >= period separately.
func EMASeries(candles types.Candles, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	ema := NewEMA(period)
	for i, c := range candles {
		out[i] = ema.Add(c.Close)
	}
	return out
}

// SMASeries computes the SMA of closes over the full candle table.
func SMASeries(candles types.Candles, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	sma := NewSMA(period)
	for i, c := range candles {
		out[i] = sma.Add(c.Close)
	}
	return out
}

// TrueRange computes the true range at bar i (0 for i == 0: high - low).
func TrueRange(candles types.Candles, i int) decimal.Decimal {
	if i == 0 {
		return candles[0].High.Sub(candles[0].Low)
	}
	hl := candles[i].High.Sub(candles[i].Low)
	hc := candles[i].High.Sub(candles[i-1].Close).Abs()
	lc := candles[i].Low.Sub(candles[i-1].Close).Abs()
	m := hl
	if hc.GreaterThan(m) {
		m = hc
	}
	if lc.GreaterThan(m) {
		m = lc
	}
	return m
}

// ATR14Series computes a 14-period EMA-smoothed true range across the whole
// table, per §4.5's "ATR uses an EMA-smoothed True Range with span 14".
func ATR14Series(candles types.Candles) []decimal.Decimal {
	const period = 14
	out := make([]decimal.Decimal, len(candles))
	ema := NewEMA(period)
	for i := range candles {
		tr := TrueRange(candles, i)
		out[i] = ema.Add(tr)
	}
	return out
}

// RollingVolumeAverage returns the mean volume over the window
// [i-window, i), or (0, false) if fewer than window prior bars exist.
func RollingVolumeAverage(candles types.Candles, i, window int) (float64, bool) {
	if i < window {
		return 0, false
	}
	var sum float64
	for j := i - window; j < i; j++ {
		sum += candles[j].Volume
	}
	return sum / float64(window), true
}

// RSISeries computes the Wilder RSI over closes for the given period.
// Index values before `period` bars have accumulated are zero; callers
// should treat those as "insufficient history".
func RSISeries(candles types.Candles, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	if len(candles) == 0 {
		return out
	}
	var avgGain, avgLoss decimal.Decimal
	p := decimal.NewFromInt(int64(period))
	for i := 1; i < len(candles); i++ {
		change := candles[i].Close.Sub(candles[i-1].Close)
		gain := decimal.Zero
		loss := decimal.Zero
		if change.IsPositive() {
			gain = change
		} else if change.IsNegative() {
			loss = change.Neg()
		}
		if i <= period {
			avgGain = avgGain.Add(gain)
			avgLoss = avgLoss.Add(loss)
			if i == period {
				avgGain = avgGain.Div(p)
				avgLoss = avgLoss.Div(p)
				out[i] = rsiFromAvg(avgGain, avgLoss)
			}
			continue
		}
		avgGain = avgGain.Mul(p.Sub(decimal.NewFromInt(1))).Add(gain).Div(p)
		avgLoss = avgLoss.Mul(p.Sub(decimal.NewFromInt(1))).Add(loss).Div(p)
		out[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return decimal.NewFromInt(100)
	}
	rs := avgGain.Div(avgLoss)
	hundred := decimal.NewFromInt(100)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}

// VWAPSeries computes a cumulative (session-less) volume-weighted average
// price across the whole table.
func VWAPSeries(candles types.Candles) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	var cumPV, cumVol decimal.Decimal
	for i, c := range candles {
		typical := c.High.Add(c.Low).Add(c.Close).Div(decimal.NewFromInt(3))
		vol := decimal.NewFromFloat(c.Volume)
		cumPV = cumPV.Add(typical.Mul(vol))
		cumVol = cumVol.Add(vol)
		if cumVol.IsZero() {
			out[i] = c.Close
			continue
		}
		out[i] = cumPV.Div(cumVol)
	}
	return out
}

// MACDSeries computes the MACD line, signal line, and histogram for the
// given fast/slow/signal periods.
func MACDSeries(candles types.Candles, fast, slow, signal int) (macd, sig, hist []decimal.Decimal) {
	fastEMA := EMASeries(candles, fast)
	slowEMA := EMASeries(candles, slow)
	macd = make([]decimal.Decimal, len(candles))
	for i := range candles {
		macd[i] = fastEMA[i].Sub(slowEMA[i])
	}
	sig = make([]decimal.Decimal, len(candles))
	ema := NewEMA(signal)
	for i, v := range macd {
		sig[i] = ema.Add(v)
	}
	hist = make([]decimal.Decimal, len(candles))
	for i := range candles {
		hist[i] = macd[i].Sub(sig[i])
	}
	return macd, sig, hist
}

// ADXSeries computes Wilder's Average Directional Index for the given
// period using +DI/-DI smoothed the same way as RSI's average gain/loss.
func ADXSeries(candles types.Candles, period int) []decimal.Decimal {
	n := len(candles)
	out := make([]decimal.Decimal, n)
	if n < period+1 {
		return out
	}
	plusDM := make([]decimal.Decimal, n)
	minusDM := make([]decimal.Decimal, n)
	tr := make([]decimal.Decimal, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High.Sub(candles[i-1].High)
		downMove := candles[i-1].Low.Sub(candles[i].Low)
		if upMove.IsPositive() && upMove.GreaterThan(downMove) {
			plusDM[i] = upMove
		}
		if downMove.IsPositive() && downMove.GreaterThan(upMove) {
			minusDM[i] = downMove
		}
		tr[i] = TrueRange(candles, i)
	}
	p := decimal.NewFromInt(int64(period))
	var smTR, smPlus, smMinus decimal.Decimal
	dx := make([]decimal.Decimal, n)
	for i := 1; i <= period; i++ {
		smTR = smTR.Add(tr[i])
		smPlus = smPlus.Add(plusDM[i])
		smMinus = smMinus.Add(minusDM[i])
	}
	for i := period + 1; i < n; i++ {
		smTR = smTR.Sub(smTR.Div(p)).Add(tr[i])
		smPlus = smPlus.Sub(smPlus.Div(p)).Add(plusDM[i])
		smMinus = smMinus.Sub(smMinus.Div(p)).Add(minusDM[i])
		if smTR.IsZero() {
			continue
		}
		plusDI := smPlus.Div(smTR).Mul(decimal.NewFromInt(100))
		minusDI := smMinus.Div(smTR).Mul(decimal.NewFromInt(100))
		sumDI := plusDI.Add(minusDI)
		if sumDI.IsZero() {
			continue
		}
		dx[i] = plusDI.Sub(minusDI).Abs().Div(sumDI).Mul(decimal.NewFromInt(100))
	}
	adxEMA := NewEMA(period)
	for i := period + 1; i < n; i++ {
		out[i] = adxEMA.Add(dx[i])
	}
	return out
}
