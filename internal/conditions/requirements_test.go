package conditions_test

import (
	"testing"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/indicators"
)

func TestCollectRequirementsWalksCombinatorsToLeaves(t *testing.T) {
	candles := barsAt(100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110)

	ema := &conditions.EMAAlignment{Direction: conditions.TrendUp, Periods: []int{2, 3}}
	tree := []conditions.Condition{
		&conditions.And{
			Left:  &conditions.PriceAbove{Level: scalarLevel(1)},
			Right: &conditions.Not{Inner: &conditions.Group{Mode: conditions.GroupAll, Conditions: []conditions.Condition{ema}}},
		},
	}

	b := indicators.NewBuilder(candles)
	conditions.CollectRequirements(tree, b)
	ctx := b.Build()

	if _, ok := ctx.SeriesAt(indicators.EMAKey(2), len(candles)-1); !ok {
		t.Error("expected ema_2 series to be populated after walking the condition tree")
	}
	if _, ok := ctx.SeriesAt(indicators.EMAKey(3), len(candles)-1); !ok {
		t.Error("expected ema_3 series to be populated after walking the condition tree")
	}
}

func TestCollectRequirementsWalksSequenceSteps(t *testing.T) {
	candles := barsAt(100, 101, 102)
	ema := &conditions.EMAAlignment{Direction: conditions.TrendUp, Periods: []int{4}}
	seq := &conditions.Sequence{Steps: []conditions.Condition{ema, &conditions.PriceAbove{Level: scalarLevel(1)}}}

	b := indicators.NewBuilder(candles)
	conditions.CollectRequirements([]conditions.Condition{seq}, b)
	ctx := b.Build()

	if _, ok := ctx.SeriesAt(indicators.EMAKey(4), len(candles)-1); !ok {
		t.Error("expected a sequence step's indicator requirement to be collected")
	}
}

func TestCollectRequirementsIgnoresNonRequirerLeaves(t *testing.T) {
	b := indicators.NewBuilder(barsAt(100, 101))
	conditions.CollectRequirements([]conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1)}}, b)
	ctx := b.Build()
	if _, ok := ctx.SeriesAt("atr14", 0); ok {
		t.Error("expected atr14 to remain unset since no condition required it and WithATR14 was never called")
	}
}
