package structure_test

import (
	"testing"

	"github.com/atlas-desktop/structurelab/internal/structure"
)

func TestBreakDetectorEachSwingContributesAtMostOneBreak(t *testing.T) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	d := structure.NewBreakDetector(structure.DefaultBreakConfig(), swings)
	candles := zigzagCandles()

	breaks := d.DetectBOS(candles)
	breaks = append(breaks, d.DetectMSB(candles)...)

	seen := make(map[int]bool)
	for _, b := range breaks {
		if seen[b.SwingBroken.Index] {
			t.Errorf("swing at index %d produced more than one break", b.SwingBroken.Index)
		}
		seen[b.SwingBroken.Index] = true
	}
}

func TestBreakDetectorClassifiesBullBreaksAboveLevel(t *testing.T) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	d := structure.NewBreakDetector(structure.DefaultBreakConfig(), swings)
	candles := zigzagCandles()

	for _, b := range d.DetectBOS(candles) {
		if b.IsBullish() && candles[b.BreakIndex].High.LessThanOrEqual(b.BreakPrice) {
			t.Errorf("bullish break at index %d should have a high strictly above the break level", b.BreakIndex)
		}
	}
}

func TestDetectRetestFindsTouchWithinTolerance(t *testing.T) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	d := structure.NewBreakDetector(structure.DefaultBreakConfig(), swings)
	candles := zigzagCandles()

	all := d.DetectBOS(candles)
	all = append(all, d.DetectMSB(candles)...)
	if len(all) == 0 {
		t.Skip("fixture produced no breaks to retest")
	}

	for _, b := range all {
		withRetest := d.DetectRetest(candles, b)
		if withRetest.RetestIndex != nil && *withRetest.RetestIndex <= b.BreakIndex {
			t.Errorf("retest index %d must be after the break index %d", *withRetest.RetestIndex, b.BreakIndex)
		}
	}
}
