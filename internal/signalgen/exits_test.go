package signalgen

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func ctxWithATR(atr float64) *indicators.Context {
	ctx := indicators.NewContext()
	ctx.Series["atr14"] = []decimal.Decimal{decimal.NewFromFloat(atr)}
	return ctx
}

func TestStopLossPercentLongAndShort(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypePercent, Percent: decimal.NewFromInt(2)}}

	sl, ok := stopLoss(s, types.DirectionLong, entry, nil, nil)
	if !ok || !sl.Equal(decimal.NewFromInt(98)) {
		t.Errorf("long 2%% SL from 100: got %s ok=%v, want 98", sl, ok)
	}
	sl, ok = stopLoss(s, types.DirectionShort, entry, nil, nil)
	if !ok || !sl.Equal(decimal.NewFromInt(102)) {
		t.Errorf("short 2%% SL from 100: got %s ok=%v, want 102", sl, ok)
	}
}

func TestStopLossFixedOffset(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypeFixed, Value: decimal.NewFromInt(5)}}
	sl, ok := stopLoss(s, types.DirectionLong, entry, nil, nil)
	if !ok || !sl.Equal(decimal.NewFromInt(95)) {
		t.Errorf("long fixed SL: got %s ok=%v, want 95", sl, ok)
	}
}

func TestStopLossATRUsesLastATRValue(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypeATR, Multiplier: decimal.NewFromFloat(2)}}
	candles := types.Candles{{}}
	ctx := ctxWithATR(3)
	sl, ok := stopLoss(s, types.DirectionLong, entry, candles, ctx)
	if !ok || !sl.Equal(decimal.NewFromInt(94)) {
		t.Errorf("long ATR SL (2x3 below entry): got %s ok=%v, want 94", sl, ok)
	}
}

func TestStopLossATRFailsWithoutATRSeries(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypeATR, Multiplier: decimal.NewFromFloat(2)}}
	candles := types.Candles{{}}
	if _, ok := stopLoss(s, types.DirectionLong, entry, candles, indicators.NewContext()); ok {
		t.Error("expected ATR stop-loss to fail when no ATR series is present")
	}
}

func TestStopLossLevelReturnsConfiguredValue(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypeLevel, Value: decimal.NewFromInt(97)}}
	sl, ok := stopLoss(s, types.DirectionLong, entry, nil, nil)
	if !ok || !sl.Equal(decimal.NewFromInt(97)) {
		t.Errorf("level SL: got %s ok=%v, want 97", sl, ok)
	}
}

func TestStopLossSwingFallsBackToATRWhenNoSwingAvailable(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: types.SLTypeSwing}}
	candles := types.Candles{{}}
	ctx := ctxWithATR(2)
	sl, ok := stopLoss(s, types.DirectionLong, entry, candles, ctx)
	if !ok {
		t.Fatal("expected the 1.5xATR fallback to succeed when no swing detector is bound")
	}
	want := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(1.5).Mul(decimal.NewFromInt(2)))
	if !sl.Equal(want) {
		t.Errorf("swing fallback SL: got %s, want %s", sl, want)
	}
}

func TestTakeProfitRiskRewardScalesStopDistance(t *testing.T) {
	entry := decimal.NewFromInt(100)
	stop := decimal.NewFromInt(98)
	s := &strategy.Strategy{TakeProfit: types.TPConfig{Type: types.TPTypeRiskReward, Ratio: decimal.NewFromFloat(2)}}
	tp, ok := takeProfit(s, types.DirectionLong, entry, stop, nil, nil)
	if !ok || !tp.Equal(decimal.NewFromInt(104)) {
		t.Errorf("long 2R TP from 100/98: got %s ok=%v, want 104", tp, ok)
	}
	tp, ok = takeProfit(s, types.DirectionShort, entry, decimal.NewFromInt(102), nil, nil)
	if !ok || !tp.Equal(decimal.NewFromInt(96)) {
		t.Errorf("short 2R TP from 100/102: got %s ok=%v, want 96", tp, ok)
	}
}

func TestTakeProfitPercentMovesAwayFromEntry(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{TakeProfit: types.TPConfig{Type: types.TPTypePercent, Percent: decimal.NewFromInt(3)}}
	tp, ok := takeProfit(s, types.DirectionLong, entry, decimal.Zero, nil, nil)
	if !ok || !tp.Equal(decimal.NewFromInt(103)) {
		t.Errorf("long 3%% TP from 100: got %s ok=%v, want 103", tp, ok)
	}
}

func TestUnknownSLAndTPTypesFail(t *testing.T) {
	entry := decimal.NewFromInt(100)
	s := &strategy.Strategy{StopLoss: types.SLConfig{Type: "bogus"}, TakeProfit: types.TPConfig{Type: "bogus"}}
	if _, ok := stopLoss(s, types.DirectionLong, entry, nil, nil); ok {
		t.Error("expected unknown stop-loss type to fail")
	}
	if _, ok := takeProfit(s, types.DirectionLong, entry, decimal.Zero, nil, nil); ok {
		t.Error("expected unknown take-profit type to fail")
	}
}
