package conditions_test

import (
	"testing"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

type stubCondition struct {
	name    string
	verdict types.Verdict
}

func (s *stubCondition) Name() string { return s.name }

func (s *stubCondition) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	switch s.verdict {
	case types.VerdictTrue:
		return types.TrueResult(s.name, "stub true", nil)
	case types.VerdictFalse:
		return types.FalseResult(s.name, "stub false", nil)
	default:
		return types.NeutralResult(s.name, "stub neutral")
	}
}

func trueC() conditions.Condition    { return &stubCondition{"t", types.VerdictTrue} }
func falseC() conditions.Condition   { return &stubCondition{"f", types.VerdictFalse} }
func neutralC() conditions.Condition { return &stubCondition{"n", types.VerdictNeutral} }

func TestAndTruthTable(t *testing.T) {
	cases := []struct {
		left, right conditions.Condition
		want        types.Verdict
	}{
		{trueC(), trueC(), types.VerdictTrue},
		{trueC(), falseC(), types.VerdictFalse},
		{falseC(), trueC(), types.VerdictFalse},
		{trueC(), neutralC(), types.VerdictNeutral},
		{neutralC(), neutralC(), types.VerdictNeutral},
		{falseC(), neutralC(), types.VerdictFalse},
	}
	for i, c := range cases {
		and := &conditions.And{Left: c.left, Right: c.right}
		got := and.Evaluate(nil, nil).Verdict
		if got != c.want {
			t.Errorf("case %d: And = %s, want %s", i, got, c.want)
		}
	}
}

func TestOrTruthTable(t *testing.T) {
	cases := []struct {
		left, right conditions.Condition
		want        types.Verdict
	}{
		{falseC(), falseC(), types.VerdictFalse},
		{trueC(), falseC(), types.VerdictTrue},
		{falseC(), trueC(), types.VerdictTrue},
		{falseC(), neutralC(), types.VerdictNeutral},
		{neutralC(), neutralC(), types.VerdictNeutral},
	}
	for i, c := range cases {
		or := &conditions.Or{Left: c.left, Right: c.right}
		got := or.Evaluate(nil, nil).Verdict
		if got != c.want {
			t.Errorf("case %d: Or = %s, want %s", i, got, c.want)
		}
	}
}

func TestNotNegatesTrueFalsePreservesNeutral(t *testing.T) {
	if v := (&conditions.Not{Inner: trueC()}).Evaluate(nil, nil).Verdict; v != types.VerdictFalse {
		t.Errorf("Not(true) = %s, want false", v)
	}
	if v := (&conditions.Not{Inner: falseC()}).Evaluate(nil, nil).Verdict; v != types.VerdictTrue {
		t.Errorf("Not(false) = %s, want true", v)
	}
	if v := (&conditions.Not{Inner: neutralC()}).Evaluate(nil, nil).Verdict; v != types.VerdictNeutral {
		t.Errorf("Not(neutral) = %s, want neutral", v)
	}
}

func TestGroupAllRequiresEveryOperandTrue(t *testing.T) {
	g := &conditions.Group{Mode: conditions.GroupAll, Conditions: []conditions.Condition{trueC(), trueC(), trueC()}}
	if v := g.Evaluate(nil, nil).Verdict; v != types.VerdictTrue {
		t.Errorf("GroupAll(true,true,true) = %s, want true", v)
	}
	g = &conditions.Group{Mode: conditions.GroupAll, Conditions: []conditions.Condition{trueC(), falseC(), trueC()}}
	if v := g.Evaluate(nil, nil).Verdict; v != types.VerdictFalse {
		t.Errorf("GroupAll with one false = %s, want false", v)
	}
	g = &conditions.Group{Mode: conditions.GroupAll, Conditions: []conditions.Condition{trueC(), neutralC()}}
	if v := g.Evaluate(nil, nil).Verdict; v != types.VerdictNeutral {
		t.Errorf("GroupAll with a neutral and no false = %s, want neutral", v)
	}
}

func TestGroupAnyRequiresOneOperandTrue(t *testing.T) {
	g := &conditions.Group{Mode: conditions.GroupAny, Conditions: []conditions.Condition{falseC(), falseC()}}
	if v := g.Evaluate(nil, nil).Verdict; v != types.VerdictFalse {
		t.Errorf("GroupAny(false,false) = %s, want false", v)
	}
	g = &conditions.Group{Mode: conditions.GroupAny, Conditions: []conditions.Condition{falseC(), trueC()}}
	if v := g.Evaluate(nil, nil).Verdict; v != types.VerdictTrue {
		t.Errorf("GroupAny with one true = %s, want true", v)
	}
}

func TestSequenceAdvancesAndCompletesInOrder(t *testing.T) {
	seq := &conditions.Sequence{
		Steps:          []conditions.Condition{trueC(), trueC()},
		MaxBarsBetween: 5,
	}
	candles := make(types.Candles, 1)

	r1 := seq.Evaluate(candles, nil)
	if r1.Verdict != types.VerdictNeutral {
		t.Fatalf("first step: expected neutral (awaiting completion), got %s", r1.Verdict)
	}
	r2 := seq.Evaluate(candles, nil)
	if r2.Verdict != types.VerdictTrue {
		t.Fatalf("second step: expected true on sequence completion, got %s", r2.Verdict)
	}
	if seq.CurrentStep != 0 {
		t.Errorf("sequence should reset its cursor after completing, got step %d", seq.CurrentStep)
	}
}

func TestSequenceResetsAfterMaxBarsBetweenExceeded(t *testing.T) {
	seq := &conditions.Sequence{
		Steps:          []conditions.Condition{trueC(), trueC()},
		MaxBarsBetween: 1,
	}
	first := make(types.Candles, 1)
	seq.Evaluate(first, nil) // advances to step 1 at bar 0

	farLater := make(types.Candles, 10) // bar index 9, well beyond MaxBarsBetween
	seq.Evaluate(farLater, nil)
	if seq.CurrentStep != 1 {
		t.Errorf("expected the stale cursor to reset and re-advance to step 1, got %d", seq.CurrentStep)
	}
}

func TestSequenceCloneIsIndependentAndReset(t *testing.T) {
	seq := &conditions.Sequence{Steps: []conditions.Condition{trueC(), trueC()}, MaxBarsBetween: 5}
	candles := make(types.Candles, 1)
	seq.Evaluate(candles, nil)
	if seq.CurrentStep != 1 {
		t.Fatalf("setup: expected step 1, got %d", seq.CurrentStep)
	}

	clone := seq.Clone()
	if clone.CurrentStep != 0 {
		t.Errorf("clone should start with a reset cursor, got step %d", clone.CurrentStep)
	}
	clone.Evaluate(candles, nil)
	if seq.CurrentStep != 1 {
		t.Errorf("evaluating the clone must not mutate the original's cursor, original now at %d", seq.CurrentStep)
	}
}
