package conditions

import (
	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// And evaluates to True iff both operands are True, False if either is
// False (reporting the first false), else Neutral.
type And struct {
	Left, Right Condition
}

func (a *And) Name() string { return "and" }

func (a *And) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	l := a.Left.Evaluate(candles, ctx)
	if l.Verdict == types.VerdictFalse {
		return l
	}
	r := a.Right.Evaluate(candles, ctx)
	if r.Verdict == types.VerdictFalse {
		return r
	}
	if l.Verdict == types.VerdictTrue && r.Verdict == types.VerdictTrue {
		return types.TrueResult(a.Name(), "both operands true", nil)
	}
	return types.NeutralResult(a.Name(), "inconclusive operand")
}

// Or evaluates to True iff either operand is True, False iff both are
// False, else Neutral.
type Or struct {
	Left, Right Condition
}

func (o *Or) Name() string { return "or" }

func (o *Or) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	l := o.Left.Evaluate(candles, ctx)
	if l.Verdict == types.VerdictTrue {
		return l
	}
	r := o.Right.Evaluate(candles, ctx)
	if r.Verdict == types.VerdictTrue {
		return r
	}
	if l.Verdict == types.VerdictFalse && r.Verdict == types.VerdictFalse {
		return types.FalseResult(o.Name(), "both operands false", nil)
	}
	return types.NeutralResult(o.Name(), "inconclusive operand")
}

// Not swaps True and False; preserves Neutral.
type Not struct {
	Inner Condition
}

func (n *Not) Name() string { return "not" }

func (n *Not) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	r := n.Inner.Evaluate(candles, ctx)
	switch r.Verdict {
	case types.VerdictTrue:
		return types.FalseResult(n.Name(), "negated true", r.Values)
	case types.VerdictFalse:
		return types.TrueResult(n.Name(), "negated false", r.Values)
	default:
		return types.NeutralResult(n.Name(), "negated neutral")
	}
}

// GroupMode selects the n-ary extension: all behaves like a chained And,
// any like a chained Or.
type GroupMode string

const (
	GroupAll GroupMode = "all"
	GroupAny GroupMode = "any"
)

// Group is the n-ary extension of And/Or.
type Group struct {
	Mode       GroupMode
	Conditions []Condition
}

func (g *Group) Name() string { return "group_" + string(g.Mode) }

func (g *Group) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(g.Conditions) == 0 {
		return types.NeutralResult(g.Name(), "empty group")
	}
	anyNeutral := false
	for _, c := range g.Conditions {
		r := c.Evaluate(candles, ctx)
		switch g.Mode {
		case GroupAll:
			if r.Verdict == types.VerdictFalse {
				return r
			}
			if r.Verdict == types.VerdictNeutral {
				anyNeutral = true
			}
		case GroupAny:
			if r.Verdict == types.VerdictTrue {
				return r
			}
			if r.Verdict == types.VerdictNeutral {
				anyNeutral = true
			}
		}
	}
	if g.Mode == GroupAll {
		if anyNeutral {
			return types.NeutralResult(g.Name(), "one or more operands neutral")
		}
		return types.TrueResult(g.Name(), "all operands true", nil)
	}
	// GroupAny: no operand was True.
	if anyNeutral {
		return types.NeutralResult(g.Name(), "one or more operands neutral")
	}
	return types.FalseResult(g.Name(), "all operands false", nil)
}

// Sequence requires each condition to fire True in order, within
// MaxBarsBetween bars of the previous step's firing bar. It owns mutable
// per-instance state (CurrentStep, LastStepBar) and must never be shared
// across strategies or parallel runs (§9).
type Sequence struct {
	Name_           string
	Steps           []Condition
	MaxBarsBetween  int
	CurrentStep     int
	LastStepBar     int
	started         bool
}

func (s *Sequence) Name() string {
	if s.Name_ != "" {
		return s.Name_
	}
	return "sequence"
}

// Evaluate advances the sequence's cursor against the bar at
// len(candles)-1. See §4.6 for the exact state machine.
func (s *Sequence) Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult {
	if len(s.Steps) == 0 {
		return types.NeutralResult(s.Name(), "empty sequence")
	}
	curBar := len(candles) - 1

	if s.started && s.CurrentStep > 0 && curBar-s.LastStepBar > s.MaxBarsBetween {
		s.CurrentStep = 0
		s.started = false
	}

	step := s.Steps[s.CurrentStep]
	r := step.Evaluate(candles, ctx)
	if r.Verdict != types.VerdictTrue {
		return types.NeutralResult(s.Name(), "awaiting step")
	}

	s.CurrentStep++
	s.LastStepBar = curBar
	s.started = true

	if s.CurrentStep >= len(s.Steps) {
		s.CurrentStep = 0
		s.started = false
		return types.TrueResult(s.Name(), "sequence completed", nil)
	}
	return types.NeutralResult(s.Name(), "step advanced")
}

// Reset restores the sequence to its initial un-started state. Strategy
// clones do not call it; they use Clone, which also starts un-started.
func (s *Sequence) Reset() {
	s.CurrentStep = 0
	s.LastStepBar = 0
	s.started = false
}

// Clone returns a fresh Sequence instance with the same steps and
// configuration but reset state, so per-worker strategy clones never share
// mutable sequence cursors.
func (s *Sequence) Clone() *Sequence {
	return &Sequence{
		Name_:          s.Name_,
		Steps:          s.Steps,
		MaxBarsBetween: s.MaxBarsBetween,
	}
}
