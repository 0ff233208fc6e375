package structure_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func candle(high, low, close float64) types.Candle {
	return types.Candle{
		Open:  decimal.NewFromFloat(close),
		High:  decimal.NewFromFloat(high),
		Low:   decimal.NewFromFloat(low),
		Close: decimal.NewFromFloat(close),
	}
}

// zigzagCandles produces a down-up-down-up wave whose turns are confirmed
// by opposite-side break. The opening slide breaks below on two bars in a
// row, so it confirms two swing highs before the first swing low.
func zigzagCandles() types.Candles {
	return types.Candles{
		candle(10, 9, 9.5),
		candle(9.5, 7, 7.5), // breaks below 9, confirms swing high at idx0 (10)
		candle(8, 5, 5.5),   // breaks below 7, confirms swing high at idx1 (9.5); swing low forming here
		candle(9, 6, 8.5),
		candle(12, 8, 11.5), // breaks above 9.5, confirms the swing low at idx2 (5)
		candle(11, 9, 9.5),
		candle(10, 6, 6.5), // pulls back, still above the swing-low cursor (5)
		candle(8, 4, 4.5),  // breaks below 5, confirms the swing high at idx4 (12)
		candle(13, 5, 12.5), // breaks above 12, confirms the swing low at idx7 (4)
	}
}

func TestSwingDetectorMonotonicAppend(t *testing.T) {
	d := structure.NewSwingDetector(structure.DefaultSwingConfig())
	full := zigzagCandles()

	fullSwings := d.Detect(full)
	if len(fullSwings) == 0 {
		t.Fatal("expected at least one confirmed swing over the full table")
	}

	for k := 3; k < len(full); k++ {
		prefixSwings := d.Detect(full[:k])
		// Every swing confirmed against a shorter prefix must appear,
		// unchanged, at the same position in the full-table result.
		if len(prefixSwings) > len(fullSwings) {
			t.Fatalf("prefix of length %d produced more swings (%d) than the full table (%d)",
				k, len(prefixSwings), len(fullSwings))
		}
		for i, sw := range prefixSwings {
			if sw != fullSwings[i] {
				t.Fatalf("prefix length %d: swing %d changed between prefix and full detect: %+v vs %+v",
					k, i, sw, fullSwings[i])
			}
		}
	}
}

func TestSwingDetectorRequiresAtLeastThreeBars(t *testing.T) {
	d := structure.NewSwingDetector(structure.DefaultSwingConfig())
	if swings := d.Detect(zigzagCandles()[:2]); swings != nil {
		t.Errorf("expected nil for fewer than 3 candles, got %v", swings)
	}
}

// staircaseCandles confirms two swing lows in a row (a higher low on the
// second break-up) before ever breaking down, then pulls back just enough
// to confirm a swing high off the ratcheted low cursor rather than the
// stale seed-bar low.
func staircaseCandles() types.Candles {
	return types.Candles{
		candle(10, 9, 9.5),     // seed
		candle(12, 11, 11.5),   // breaks above 10, confirms swing low at idx0 (9)
		candle(11.5, 9.5, 10.5), // pulls back to 9.5 without breaking below 9
		candle(13, 10, 12.5),   // breaks above 12, confirms a higher swing low at idx2 (9.5)
		candle(12, 9.2, 10),    // dips to 9.2: below the ratcheted low (9.5) but not the stale one (9)
	}
}

func TestSwingDetectorRatchetsOppositeCursorOnConsecutiveConfirmations(t *testing.T) {
	d := structure.NewSwingDetector(structure.DefaultSwingConfig())
	swings := d.Detect(staircaseCandles())

	if len(swings) != 3 {
		t.Fatalf("expected 3 confirmed swings (two swing lows then a swing high off the "+
			"ratcheted low cursor), got %d: %+v", len(swings), swings)
	}

	first, second, third := swings[0], swings[1], swings[2]
	if first.Kind != types.SwingLow || first.Index != 0 || !first.Price.Equal(decimal.NewFromFloat(9)) {
		t.Errorf("expected the first swing to be a low at index 0 price 9, got %+v", first)
	}
	if second.Kind != types.SwingLow || second.Index != 2 || !second.Price.Equal(decimal.NewFromFloat(9.5)) {
		t.Errorf("expected the second swing to be a higher low at index 2 price 9.5, got %+v", second)
	}
	if second.Structure != types.StructureHL {
		t.Errorf("expected the second swing low to be labeled HL, got %s", second.Structure)
	}
	if third.Kind != types.SwingHigh || third.Index != 3 || !third.Price.Equal(decimal.NewFromFloat(13)) {
		t.Errorf("expected a swing high at index 3 price 13 confirmed off the ratcheted low cursor, got %+v", third)
	}
}

func TestSwingDetectorZigzagConfirmsExpectedSwingSequence(t *testing.T) {
	d := structure.NewSwingDetector(structure.DefaultSwingConfig())
	swings := d.Detect(zigzagCandles())
	wantKinds := []types.SwingKind{types.SwingHigh, types.SwingHigh, types.SwingLow, types.SwingHigh, types.SwingLow}
	wantIndices := []int{0, 1, 2, 4, 7}
	if len(swings) != len(wantKinds) {
		t.Fatalf("expected %d confirmed swings, got %d: %+v", len(wantKinds), len(swings), swings)
	}
	for i := range swings {
		if swings[i].Kind != wantKinds[i] || swings[i].Index != wantIndices[i] {
			t.Errorf("swing %d: expected %s at index %d, got %s at index %d",
				i, wantKinds[i], wantIndices[i], swings[i].Kind, swings[i].Index)
		}
	}
}
