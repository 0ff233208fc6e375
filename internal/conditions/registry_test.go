package conditions_test

import (
	"testing"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/structure"
)

func TestRegistryKnownRecognizesEveryRegisteredType(t *testing.T) {
	reg := conditions.NewRegistry()
	known := []string{
		"price_above", "price_below", "price_near", "price_in_range", "price_crossed",
		"candle_direction", "consecutive_candles", "ema_alignment", "price_above_ema",
		"price_below_ema", "rsi_level", "vwap_slope", "price_above_vwap", "price_below_vwap",
		"volume_spike", "adx_trending", "macd_crossover", "bos_occurred", "msb_occurred",
		"in_range", "at_75_fib_level", "at_25_fib_level", "false_breakout_occurred",
		"liquidity_sweep_occurred", "in_uptrend", "in_downtrend", "is_ranging", "retest_occurred",
	}
	for _, typeName := range known {
		if !reg.Known(typeName) {
			t.Errorf("expected %q to be a known condition type", typeName)
		}
	}
	if reg.Known("not_a_real_type") {
		t.Error("expected an unregistered type name to be unknown")
	}
}

func TestRegistryBuildReturnsErrorForUnknownType(t *testing.T) {
	reg := conditions.NewRegistry()
	if _, err := reg.Build("not_a_real_type", nil, nil); err == nil {
		t.Error("expected Build to error on an unregistered type")
	}
}

func TestRegistryBuildSimpleLeafCondition(t *testing.T) {
	reg := conditions.NewRegistry()
	c, err := reg.Build("price_above", conditions.Params{"level": 100.0}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Name() != "price_above" {
		t.Errorf("got name %q, want price_above", c.Name())
	}
}

func TestRegistryBuildStructuralConditionRequiresDetector(t *testing.T) {
	reg := conditions.NewRegistry()
	if _, err := reg.Build("bos_occurred", conditions.Params{}, &conditions.Detectors{}); err == nil {
		t.Error("expected bos_occurred to require a bound break detector")
	}

	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	det := &conditions.Detectors{Breaks: structure.NewBreakDetector(structure.DefaultBreakConfig(), swings)}
	if _, err := reg.Build("bos_occurred", conditions.Params{}, det); err != nil {
		t.Errorf("expected bos_occurred to build with a bound break detector, got %v", err)
	}
}
