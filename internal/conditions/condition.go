// Package conditions implements the three-valued condition algebra (§4.6):
// a composable tree of predicates over a candle window plus an auxiliary
// indicator context, combinable by conjunction/disjunction/negation/
// sequence.
package conditions

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// Condition evaluates to a three-valued EvaluationResult given the candle
// prefix up to and including the current bar, plus the precomputed
// indicator context for that table.
type Condition interface {
	Name() string
	Evaluate(candles types.Candles, ctx *indicators.Context) types.EvaluationResult
}

// LevelKind distinguishes how a price-condition's "level" parameter is
// resolved, per the design note's closed-sum replacement for a callable.
type LevelKind string

const (
	LevelScalar     LevelKind = "scalar"
	LevelContextKey LevelKind = "context_key"
	LevelComputed   LevelKind = "computed"
)

// Level is the closed-sum encoding of a price condition's level parameter.
type Level struct {
	Kind       LevelKind
	Scalar     decimal.Decimal
	ContextKey string
	Computed   string // e.g. "swing_low", "range_mid" — indexes a small registry
}

// Resolve returns the concrete price for this Level against the given
// candle prefix and context. A Computed level is looked up by name in the
// given computed map (the price conditions pass ComputedLevels, which
// ships empty; nothing registers entries into it); an unresolvable
// Computed or ContextKey level returns (zero, false).
func (l Level) Resolve(candles types.Candles, ctx *indicators.Context, computed map[string]ComputedLevelFunc) (decimal.Decimal, bool) {
	switch l.Kind {
	case LevelScalar:
		return l.Scalar, true
	case LevelContextKey:
		return ctx.Level(l.ContextKey)
	case LevelComputed:
		fn, ok := computed[l.Computed]
		if !ok {
			return decimal.Zero, false
		}
		return fn(candles, ctx)
	default:
		return decimal.Zero, false
	}
}

// ComputedLevelFunc is a pure derivation registered under a Computed name
// (e.g. "swing_low", "range_mid").
type ComputedLevelFunc func(candles types.Candles, ctx *indicators.Context) (decimal.Decimal, bool)
