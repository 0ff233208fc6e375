package conditions

// CloneCondition returns a copy of c safe to hand to an independent worker.
// Every combinator is walked recursively; Sequence is the only condition
// type carrying mutable per-instance state, so it is the only one that
// actually gets a new underlying value — everything else is stateless and
// is returned as-is (§9: per-instance Sequence state must never be shared
// across strategies or parallel runs).
func CloneCondition(c Condition) Condition {
	switch t := c.(type) {
	case *And:
		return &And{Left: CloneCondition(t.Left), Right: CloneCondition(t.Right)}
	case *Or:
		return &Or{Left: CloneCondition(t.Left), Right: CloneCondition(t.Right)}
	case *Not:
		return &Not{Inner: CloneCondition(t.Inner)}
	case *Group:
		cloned := make([]Condition, len(t.Conditions))
		for i, inner := range t.Conditions {
			cloned[i] = CloneCondition(inner)
		}
		return &Group{Mode: t.Mode, Conditions: cloned}
	case *Sequence:
		steps := make([]Condition, len(t.Steps))
		for i, inner := range t.Steps {
			steps[i] = CloneCondition(inner)
		}
		clone := t.Clone()
		clone.Steps = steps
		return clone
	default:
		return c
	}
}
