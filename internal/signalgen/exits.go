package signalgen

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

var hundred = decimal.NewFromInt(100)

func atr14Last(candles types.Candles, ctx *indicators.Context) (decimal.Decimal, bool) {
	if len(candles) == 0 {
		return decimal.Zero, false
	}
	return ctx.SeriesAt("atr14", len(candles)-1)
}

// stopLoss resolves a strategy's configured stop-loss into an absolute
// price for the side being entered, per §4.8.
func stopLoss(s *strategy.Strategy, kind types.Direction, entry decimal.Decimal, candles types.Candles, ctx *indicators.Context) (decimal.Decimal, bool) {
	cfg := s.StopLoss
	switch cfg.Type {
	case types.SLTypeATR:
		return atrOffset(entry, kind, cfg.Multiplier, candles, ctx, true)
	case types.SLTypePercent:
		return percentOffset(entry, kind, cfg.Percent, true), true
	case types.SLTypeFixed:
		return fixedOffset(entry, kind, cfg.Value, true), true
	case types.SLTypeSwing:
		if price, ok := oppositeSwing(s, kind, candles); ok {
			return price, true
		}
		return atrOffset(entry, kind, decimal.NewFromFloat(1.5), candles, ctx, true)
	case types.SLTypeLevel:
		return cfg.Value, true
	default:
		return decimal.Zero, false
	}
}

// takeProfit resolves a strategy's configured take-profit into an absolute
// price for the side being entered, per §4.8.
func takeProfit(s *strategy.Strategy, kind types.Direction, entry, stop decimal.Decimal, candles types.Candles, ctx *indicators.Context) (decimal.Decimal, bool) {
	cfg := s.TakeProfit
	switch cfg.Type {
	case types.TPTypeRiskReward:
		risk := entry.Sub(stop).Abs()
		delta := cfg.Ratio.Mul(risk)
		if kind == types.DirectionShort {
			return entry.Sub(delta), true
		}
		return entry.Add(delta), true
	case types.TPTypeATR:
		return atrOffset(entry, kind, cfg.Multiplier, candles, ctx, false)
	case types.TPTypePercent:
		return percentOffset(entry, kind, cfg.Percent, false), true
	case types.TPTypeFixed:
		return fixedOffset(entry, kind, cfg.Value, false), true
	case types.TPTypeLevel:
		return cfg.Value, true
	default:
		return decimal.Zero, false
	}
}

// atrOffset computes entry ∓ multiplier*ATR14[last] for a stop (toward),
// or entry ± multiplier*ATR14[last] for a target (away), depending on
// side and the toward flag.
func atrOffset(entry decimal.Decimal, kind types.Direction, multiplier decimal.Decimal, candles types.Candles, ctx *indicators.Context, toward bool) (decimal.Decimal, bool) {
	atr, ok := atr14Last(candles, ctx)
	if !ok {
		return decimal.Zero, false
	}
	delta := multiplier.Mul(atr)
	long := kind != types.DirectionShort
	sub := long == toward
	if sub {
		return entry.Sub(delta), true
	}
	return entry.Add(delta), true
}

func percentOffset(entry decimal.Decimal, kind types.Direction, percent decimal.Decimal, toward bool) decimal.Decimal {
	frac := percent.Div(hundred)
	long := kind != types.DirectionShort
	sub := long == toward
	if sub {
		return entry.Mul(decimal.NewFromInt(1).Sub(frac))
	}
	return entry.Mul(decimal.NewFromInt(1).Add(frac))
}

func fixedOffset(entry decimal.Decimal, kind types.Direction, value decimal.Decimal, toward bool) decimal.Decimal {
	long := kind != types.DirectionShort
	sub := long == toward
	if sub {
		return entry.Sub(value)
	}
	return entry.Add(value)
}

// oppositeSwing returns the most recent swing on the opposite side of
// kind: for a Long entry that is the most recent swing low, for a Short
// entry the most recent swing high.
func oppositeSwing(s *strategy.Strategy, kind types.Direction, candles types.Candles) (decimal.Decimal, bool) {
	if s.Swings == nil {
		return decimal.Zero, false
	}
	want := types.SwingLow
	if kind == types.DirectionShort {
		want = types.SwingHigh
	}
	swings := s.Swings.Detect(candles)
	for i := len(swings) - 1; i >= 0; i-- {
		if swings[i].Kind == want {
			return swings[i].Price, true
		}
	}
	return decimal.Zero, false
}
