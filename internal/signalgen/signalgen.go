// Package signalgen evaluates a set of registered strategies against a
// candle prefix and turns any satisfied entry into a sized Signal (§4.8).
package signalgen

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// SignalGenerator evaluates every registered strategy's entry conjunction
// and filter disjunction against the current candle prefix, building at
// most one Signal per strategy per call.
type SignalGenerator struct {
	strategies []*strategy.Strategy
}

// New returns an empty SignalGenerator.
func New() *SignalGenerator {
	return &SignalGenerator{}
}

// AddStrategy registers s. Registration order is the tie-break order used
// by the backtester when max_positions limits concurrent entries (§4.8).
func (g *SignalGenerator) AddStrategy(s *strategy.Strategy) {
	g.strategies = append(g.strategies, s)
}

// Strategies returns the registered strategies in registration order.
func (g *SignalGenerator) Strategies() []*strategy.Strategy {
	return g.strategies
}

// Generate evaluates every enabled, registered strategy against candles and
// returns one Signal per strategy whose entry conjunction and filter
// disjunction both pass and whose sizing formula yields a positive size
// (§4.8). candles is the prefix up to and including the bar being
// evaluated; barIndex is its last index.
func (g *SignalGenerator) Generate(candles types.Candles, symbol string, balance decimal.Decimal) []types.Signal {
	var out []types.Signal
	if len(candles) == 0 {
		return out
	}
	barIndex := len(candles) - 1
	last := candles[barIndex]

	for _, s := range g.strategies {
		if !s.Enabled {
			continue
		}
		ctx := s.BuildContext(candles)
		if !s.EntrySatisfied(candles, ctx) {
			continue
		}

		kind := signalKind(s, candles, ctx)
		entry := last.Close

		sl, ok := stopLoss(s, kind, entry, candles, ctx)
		if !ok {
			continue
		}
		tp, ok := takeProfit(s, kind, entry, sl, candles, ctx)
		if !ok {
			continue
		}

		riskPerUnit := entry.Sub(sl).Abs()
		if riskPerUnit.IsZero() {
			continue
		}
		riskAmount := balance.Mul(s.RiskPercent).Div(decimal.NewFromInt(100))
		positionSize := riskAmount.Div(riskPerUnit)
		if !positionSize.IsPositive() {
			continue
		}

		out = append(out, types.Signal{
			ID:           uuid.NewString(),
			Kind:         kind,
			EntryPrice:   entry,
			StopLoss:     sl,
			TakeProfit:   tp,
			PositionSize: positionSize,
			RiskAmount:   riskAmount,
			StrategyName: s.Name,
			BarIndex:     barIndex,
			Timestamp:    last.TimestampMs,
		})
	}
	return out
}

// signalKind resolves the traded side for a signal. A strategy scoped to
// Long or Short always trades that side; a "both" strategy takes the side
// from the kind of the most recent confirmed swing reported by s.Swings
// (swing low -> long, swing high -> short), and defaults to long when no
// swing detector is bound or no swing has confirmed yet. The structure
// regime analyzer is not consulted.
func signalKind(s *strategy.Strategy, candles types.Candles, ctx *indicators.Context) types.Direction {
	switch s.Direction {
	case types.DirectionLong, types.DirectionShort:
		return s.Direction
	default:
		if s.Swings == nil {
			return types.DirectionLong
		}
		swings := s.Swings.Detect(candles)
		if len(swings) == 0 {
			return types.DirectionLong
		}
		last := swings[len(swings)-1]
		if last.Kind == types.SwingLow {
			return types.DirectionLong
		}
		return types.DirectionShort
	}
}
