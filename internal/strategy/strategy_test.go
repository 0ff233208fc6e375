package strategy_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/strategy"
)

func scalarLevel(v float64) conditions.Level {
	return conditions.Level{Kind: conditions.LevelScalar, Scalar: decimal.NewFromFloat(v)}
}

func TestEntrySatisfiedVacuouslyTrueWithNoEntryConditions(t *testing.T) {
	s := &strategy.Strategy{}
	if !s.EntrySatisfied(barsAt(1), nil) {
		t.Error("expected an empty entry slice to be vacuously satisfied")
	}
}

func TestEntrySatisfiedRequiresAllEntryConditionsTrue(t *testing.T) {
	s := &strategy.Strategy{
		Entry: []conditions.Condition{
			&conditions.PriceAbove{Level: scalarLevel(1)},
			&conditions.PriceBelow{Level: scalarLevel(1000)},
		},
	}
	candles := barsAt(100)
	if !s.EntrySatisfied(candles, nil) {
		t.Error("expected both entry conditions to be satisfied")
	}

	s.Entry = append(s.Entry, &conditions.PriceAbove{Level: scalarLevel(1_000_000)})
	if s.EntrySatisfied(candles, nil) {
		t.Error("expected a single false entry condition to fail the whole conjunction")
	}
}

func TestEntrySatisfiedNoFiltersPassesByDefault(t *testing.T) {
	s := &strategy.Strategy{Entry: []conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1)}}}
	if !s.EntrySatisfied(barsAt(100), nil) {
		t.Error("expected entry with no filters to pass once the entry conjunction is true")
	}
}

func TestEntrySatisfiedRequiresAtLeastOneFilterTrue(t *testing.T) {
	s := &strategy.Strategy{
		Entry:   []conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1)}},
		Filters: []conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1_000_000)}},
	}
	if s.EntrySatisfied(barsAt(100), nil) {
		t.Error("expected entry to fail when no filter evaluates true")
	}

	s.Filters = append(s.Filters, &conditions.PriceBelow{Level: scalarLevel(1_000_000)})
	if !s.EntrySatisfied(barsAt(100), nil) {
		t.Error("expected entry to pass once at least one filter evaluates true")
	}
}

func TestBuildContextAlwaysIncludesATR14(t *testing.T) {
	s := &strategy.Strategy{Entry: []conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1)}}}
	candles := barsAt(100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115)
	ctx := s.BuildContext(candles)
	if _, ok := ctx.SeriesAt("atr14", len(candles)-1); !ok {
		t.Error("expected BuildContext to always compute atr14")
	}
}

func TestBuildContextCollectsIndicatorRequirementsFromEntryAndFilters(t *testing.T) {
	s := &strategy.Strategy{
		Entry:   []conditions.Condition{&conditions.EMAAlignment{Direction: conditions.TrendUp, Periods: []int{3}}},
		Filters: []conditions.Condition{&conditions.EMAAlignment{Direction: conditions.TrendUp, Periods: []int{5}}},
	}
	candles := barsAt(100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 110)
	ctx := s.BuildContext(candles)
	for _, period := range []int{3, 5} {
		key := indicators.EMAKey(period)
		if _, ok := ctx.SeriesAt(key, len(candles)-1); !ok {
			t.Errorf("expected %s to be populated by BuildContext's requirement walk", key)
		}
	}
}

func TestCloneGivesSequencesIndependentCursors(t *testing.T) {
	seq := &conditions.Sequence{
		Name_: "two-step",
		Steps: []conditions.Condition{
			&conditions.PriceAbove{Level: scalarLevel(1)},
			&conditions.PriceAbove{Level: scalarLevel(1_000_000)},
		},
	}
	original := &strategy.Strategy{Entry: []conditions.Condition{seq}}
	clone := original.Clone()

	candles := barsAt(100)
	original.Entry[0].Evaluate(candles, nil)

	origSeq := original.Entry[0].(*conditions.Sequence)
	cloneSeq := clone.Entry[0].(*conditions.Sequence)
	if origSeq.CurrentStep == 0 {
		t.Fatal("expected the original sequence to have advanced past step 0")
	}
	if cloneSeq.CurrentStep != 0 {
		t.Error("expected the clone's sequence cursor to remain independent of the original's")
	}
}

func TestCloneDeepCopiesEntryAndFilterSlices(t *testing.T) {
	original := &strategy.Strategy{
		Entry:   []conditions.Condition{&conditions.PriceAbove{Level: scalarLevel(1)}},
		Filters: []conditions.Condition{&conditions.PriceBelow{Level: scalarLevel(2)}},
	}
	clone := original.Clone()
	if len(clone.Entry) != 1 || len(clone.Filters) != 1 {
		t.Fatalf("expected clone to carry the same number of entry/filter conditions, got %d/%d", len(clone.Entry), len(clone.Filters))
	}
	if &clone.Entry[0] == &original.Entry[0] || &clone.Filters[0] == &original.Filters[0] {
		t.Error("expected Clone to allocate its own entry and filter slices, not share the original's backing arrays")
	}
}
