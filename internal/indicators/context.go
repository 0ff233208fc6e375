package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// Context is the typed, explicit replacement for the source's variadic
// keyword map: a per-bar snapshot of the named series, scalars, and levels
// a condition might reference. Built once per candle table by a Builder and
// shared read-only by every condition evaluated against that table.
type Context struct {
	Series      map[string][]decimal.Decimal
	Scalars     map[string]decimal.Decimal
	NamedLevels map[string]decimal.Decimal
}

// NewContext returns an empty Context ready for population.
func NewContext() *Context {
	return &Context{
		Series:      make(map[string][]decimal.Decimal),
		Scalars:     make(map[string]decimal.Decimal),
		NamedLevels: make(map[string]decimal.Decimal),
	}
}

// SeriesAt returns the value of a named series at bar i, or (zero, false)
// if the key is missing or i is out of range — the condition catalog's
// "missing context yields Neutral" policy is implemented by callers
// checking this ok flag.
func (c *Context) SeriesAt(key string, i int) (decimal.Decimal, bool) {
	s, ok := c.Series[key]
	if !ok || i < 0 || i >= len(s) {
		return decimal.Zero, false
	}
	return s[i], true
}

// Scalar returns a named scalar, or (zero, false) if missing.
func (c *Context) Scalar(key string) (decimal.Decimal, bool) {
	v, ok := c.Scalars[key]
	return v, ok
}

// Level returns a named level, or (zero, false) if missing.
func (c *Context) Level(key string) (decimal.Decimal, bool) {
	v, ok := c.NamedLevels[key]
	return v, ok
}

// EMAKey builds the canonical context key for an EMA series of the given
// period, e.g. "ema_50".
func EMAKey(period int) string { return fmt.Sprintf("ema_%d", period) }

// RSIKey builds the canonical context key for an RSI series.
func RSIKey(period int) string { return fmt.Sprintf("rsi_%d", period) }

// Builder constructs a Context for a candle table, computing only the
// series a caller asks for (mirroring the design note's "context builder
// that knows which keys each active condition requires").
type Builder struct {
	candles types.Candles
	ctx     *Context
}

// NewBuilder creates a Builder over a candle table.
func NewBuilder(candles types.Candles) *Builder {
	return &Builder{candles: candles, ctx: NewContext()}
}

// WithATR14 adds the "atr14" series.
func (b *Builder) WithATR14() *Builder {
	b.ctx.Series["atr14"] = ATR14Series(b.candles)
	return b
}

// WithEMA adds an "ema_<period>" series.
func (b *Builder) WithEMA(period int) *Builder {
	b.ctx.Series[EMAKey(period)] = EMASeries(b.candles, period)
	return b
}

// WithRSI adds an "rsi_<period>" series.
func (b *Builder) WithRSI(period int) *Builder {
	b.ctx.Series[RSIKey(period)] = RSISeries(b.candles, period)
	return b
}

// WithVWAP adds the "vwap" series.
func (b *Builder) WithVWAP() *Builder {
	b.ctx.Series["vwap"] = VWAPSeries(b.candles)
	return b
}

// WithMACD adds "macd", "macd_signal", and "macd_hist" series.
func (b *Builder) WithMACD(fast, slow, signal int) *Builder {
	macd, sig, hist := MACDSeries(b.candles, fast, slow, signal)
	b.ctx.Series["macd"] = macd
	b.ctx.Series["macd_signal"] = sig
	b.ctx.Series["macd_hist"] = hist
	return b
}

// WithADX adds the "adx_<period>" series.
func (b *Builder) WithADX(period int) *Builder {
	b.ctx.Series[fmt.Sprintf("adx_%d", period)] = ADXSeries(b.candles, period)
	return b
}

// Build returns the populated Context.
func (b *Builder) Build() *Context {
	return b.ctx
}
