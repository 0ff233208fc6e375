// Package strategy defines the declarative strategy document model: a
// named set of entry/filter conditions plus stop-loss/take-profit/risk
// configuration, loaded from YAML and built against the condition
// registry (§4.7).
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// Strategy is one fully-built, ready-to-evaluate trading rule set.
type Strategy struct {
	Name         string
	Timeframe    types.Timeframe
	Direction    types.Direction
	Entry        []conditions.Condition
	Filters      []conditions.Condition
	StopLoss     types.SLConfig
	TakeProfit   types.TPConfig
	RiskPercent  decimal.Decimal
	MaxPositions int
	Enabled      bool

	// Swings backs the signal generator's "swing"-type stop-loss lookup
	// (most recent opposite swing price). It is the same detector instance
	// bound into this strategy's condition tree at Build time, so its
	// output is consistent with whatever pattern conditions already
	// evaluated this bar.
	Swings *structure.SwingDetector
}

// EntrySatisfied reports whether the entry conjunction and filter
// disjunction both pass (§4.8): every entry condition must evaluate
// True, and either there are no filters or at least one filter evaluates
// True.
func (s *Strategy) EntrySatisfied(candles types.Candles, ctx *indicators.Context) bool {
	for _, c := range s.Entry {
		if c.Evaluate(candles, ctx).Verdict != types.VerdictTrue {
			return false
		}
	}
	if len(s.Filters) == 0 {
		return true
	}
	for _, c := range s.Filters {
		if c.Evaluate(candles, ctx).Verdict == types.VerdictTrue {
			return true
		}
	}
	return false
}

// BuildContext constructs the indicator Context this strategy's condition
// tree needs against candles: ATR14 always (the signal generator's SL/TP
// formulas read it directly), plus whatever EMA/RSI/VWAP/MACD/ADX series
// the entry and filter conditions themselves require (§9's context
// builder that only computes what is asked for).
func (s *Strategy) BuildContext(candles types.Candles) *indicators.Context {
	b := indicators.NewBuilder(candles).WithATR14()
	conditions.CollectRequirements(s.Entry, b)
	conditions.CollectRequirements(s.Filters, b)
	return b.Build()
}

// Clone returns a copy of s safe to hand to an independent worker: every
// Sequence condition (the only mutable per-instance state in the
// condition algebra) gets its own fresh cursor, so parallel runs never
// share state across strategy clones (§9).
func (s *Strategy) Clone() *Strategy {
	clone := *s
	clone.Entry = make([]conditions.Condition, len(s.Entry))
	for i, c := range s.Entry {
		clone.Entry[i] = conditions.CloneCondition(c)
	}
	clone.Filters = make([]conditions.Condition, len(s.Filters))
	for i, c := range s.Filters {
		clone.Filters[i] = conditions.CloneCondition(c)
	}
	return &clone
}
