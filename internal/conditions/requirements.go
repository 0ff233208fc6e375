package conditions

import "github.com/atlas-desktop/structurelab/internal/indicators"

// IndicatorRequirer is implemented by conditions that read a parameterized
// indicator series (EMA/RSI/VWAP/MACD/ADX) from the shared Context. The
// strategy's context is built once per candle table from only the series
// its actual condition tree needs (§9's context-builder design note).
type IndicatorRequirer interface {
	RequireIndicators(b *indicators.Builder)
}

// CollectRequirements walks every condition tree in conds, including
// combinator children, and registers each leaf's indicator requirements
// (if any) onto b.
func CollectRequirements(conds []Condition, b *indicators.Builder) {
	for _, c := range conds {
		collectOne(c, b)
	}
}

func collectOne(c Condition, b *indicators.Builder) {
	if c == nil {
		return
	}
	if r, ok := c.(IndicatorRequirer); ok {
		r.RequireIndicators(b)
	}
	switch t := c.(type) {
	case *And:
		collectOne(t.Left, b)
		collectOne(t.Right, b)
	case *Or:
		collectOne(t.Left, b)
		collectOne(t.Right, b)
	case *Not:
		collectOne(t.Inner, b)
	case *Group:
		for _, inner := range t.Conditions {
			collectOne(inner, b)
		}
	case *Sequence:
		for _, step := range t.Steps {
			collectOne(step, b)
		}
	}
}
