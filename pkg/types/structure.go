package types

import "github.com/shopspring/decimal"

// SwingKind distinguishes a confirmed pivot high from a confirmed pivot low.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// StructureLabel classifies a swing against its most recent same-kind
// predecessor. The empty label means no predecessor existed yet.
type StructureLabel string

const (
	StructureHH   StructureLabel = "HH"
	StructureHL   StructureLabel = "HL"
	StructureLH   StructureLabel = "LH"
	StructureLL   StructureLabel = "LL"
	StructureNone StructureLabel = ""
)

// SwingPoint is a confirmed pivot. It is immutable once appended by the
// swing detector: Index < ConfirmedAtIndex always holds, since a swing is
// only known to be a swing once price breaks the opposite side.
type SwingPoint struct {
	Index            int
	Price            decimal.Decimal
	Kind             SwingKind
	ConfirmedAtIndex int
	Structure        StructureLabel
}

// RangeStatus is the state of a detected consolidation range.
type RangeStatus string

const (
	RangeForming     RangeStatus = "forming"
	RangeConfirmed   RangeStatus = "confirmed"
	RangeBrokenUp    RangeStatus = "broken_up"
	RangeBrokenDown  RangeStatus = "broken_down"
)

// Range is a consolidation box bounded by a swing-high/swing-low pair, with
// touch counts and Fibonacci retracement levels derived from its height.
type Range struct {
	High        decimal.Decimal
	Low         decimal.Decimal
	StartIndex  int
	EndIndex    int
	HighTouches int
	LowTouches  int
	Status      RangeStatus
	HighSwing   SwingPoint
	LowSwing    SwingPoint
}

// Height returns high - low.
func (r Range) Height() decimal.Decimal {
	return r.High.Sub(r.Low)
}

// Fib returns the price at retracement fraction pct (0 = low, 1 = high).
func (r Range) Fib(pct decimal.Decimal) decimal.Decimal {
	return r.Low.Add(r.Height().Mul(pct))
}

// BreakKind classifies a structure break by direction and strength.
type BreakKind string

const (
	BreakBOSBull BreakKind = "bos_bull"
	BreakBOSBear BreakKind = "bos_bear"
	BreakMSBBull BreakKind = "msb_bull"
	BreakMSBBear BreakKind = "msb_bear"
)

// StructureBreak is a BOS or MSB/CHOCH event: price trading past a prior
// swing level (by high/low, or by close when the break detector's UseClose
// is set), with an optional observed retest.
type StructureBreak struct {
	Kind          BreakKind
	BreakIndex    int
	BreakPrice    decimal.Decimal
	BreakClose    decimal.Decimal
	SwingBroken   SwingPoint
	RetestIndex   *int
	RetestPrice   *decimal.Decimal
}

// IsBullish reports whether the break continues or reverses into an
// upward-biased kind.
func (b StructureBreak) IsBullish() bool {
	return b.Kind == BreakBOSBull || b.Kind == BreakMSBBull
}

// FBKind is the side a false breakout pierces.
type FBKind string

const (
	FBAbove FBKind = "above"
	FBBelow FBKind = "below"
)

// FalseBreakout is a wick-and-rejection event at a key level: price pierces
// the level intrabar but closes back on the original side within a short
// window.
type FalseBreakout struct {
	Kind          FBKind
	LevelPrice    decimal.Decimal
	BreakIndex    int
	ExtremePrice  decimal.Decimal
	ReversalIndex int
	ReversalClose decimal.Decimal
	WickSize      decimal.Decimal
	VolumeSpike   bool
}
