package types

import "github.com/shopspring/decimal"

// Signal is a single entry instruction emitted by the signal generator for
// one strategy on one bar.
type Signal struct {
	ID           string
	Kind         Direction // DirectionLong or DirectionShort only
	EntryPrice   decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	PositionSize decimal.Decimal
	RiskAmount   decimal.Decimal
	StrategyName string
	BarIndex     int
	Timestamp    int64
}

// Valid checks the Signal invariants from the data model: for Long,
// stop_loss < entry_price < take_profit; symmetric for Short; size > 0.
func (s Signal) Valid() bool {
	if !s.PositionSize.IsPositive() {
		return false
	}
	switch s.Kind {
	case DirectionLong:
		return s.StopLoss.LessThan(s.EntryPrice) && s.EntryPrice.LessThan(s.TakeProfit)
	case DirectionShort:
		return s.TakeProfit.LessThan(s.EntryPrice) && s.EntryPrice.LessThan(s.StopLoss)
	default:
		return false
	}
}
