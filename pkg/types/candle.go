// Package types defines the shared domain model for candles, market-structure
// records, strategies, signals, and backtest results.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar. Price fields are decimal to avoid the
// rounding drift float64 introduces over long backtests; volume stays a
// float64 since it is never compared against a boolean verdict directly.
type Candle struct {
	TimestampMs int64
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      float64
}

// Candles is an ordered candle table. Timestamps must be strictly
// monotonically increasing; callers are expected to validate this once at
// the edge of a run (see ValidateCandles).
type Candles []Candle

// ValidateCandles checks the minimal structural invariants required before
// any analyzer or driver operation is allowed to run.
func ValidateCandles(candles Candles) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].TimestampMs <= candles[i-1].TimestampMs {
			return fmt.Errorf("candle table: timestamp at index %d (%d) is not strictly after index %d (%d)",
				i, candles[i].TimestampMs, i-1, candles[i-1].TimestampMs)
		}
	}
	return nil
}

// Timeframe is one of a closed set of supported bar intervals.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

// Minutes returns the timeframe's duration in minutes, or 0 if unrecognized.
func (t Timeframe) Minutes() int {
	switch t {
	case Timeframe1m:
		return 1
	case Timeframe5m:
		return 5
	case Timeframe15m:
		return 15
	case Timeframe30m:
		return 30
	case Timeframe1h:
		return 60
	case Timeframe4h:
		return 240
	case Timeframe1d:
		return 1440
	case Timeframe1w:
		return 10080
	default:
		return 0
	}
}

// Valid reports whether t is a member of the closed timeframe enum.
func (t Timeframe) Valid() bool {
	return t.Minutes() > 0
}
