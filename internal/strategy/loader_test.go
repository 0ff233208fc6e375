package strategy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func barsAt(closes ...float64) types.Candles {
	out := make(types.Candles, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out[i] = types.Candle{TimestampMs: int64(i), Open: d, High: d, Low: d, Close: d}
	}
	return out
}

const nestedStrategyYAML = `
name: nested-combinators
timeframe: 1h
direction: long
entry:
  conditions:
    - type: and
      left:
        type: sequence
        name: two-step
        max_bars_between: 3
        steps:
          - type: price_above
            level: 100
          - type: price_below
            level: 200
      right:
        type: not
        inner:
          type: group
          mode: any
          conditions:
            - type: price_above
              level: 50
            - type: price_below
              level: 10
filters:
  - type: price_above
    level: 1
exit:
  stop_loss:
    type: percent
    percent: 2
  take_profit:
    type: risk_reward
    ratio: 1.5
risk_percent: 1
max_positions: 1
`

const unknownTypeYAML = `
name: has-unknown-leaf
timeframe: 1h
direction: long
entry:
  conditions:
    - type: not_a_real_condition_type
      foo: bar
exit:
  stop_loss:
    type: percent
    percent: 2
  take_profit:
    type: risk_reward
    ratio: 1.5
risk_percent: 1
max_positions: 1
`

func writeFixture(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func TestLoaderParsesNestedCombinatorSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "nested.yaml", nestedStrategyYAML)

	l := strategy.NewLoader(zap.NewNop(), conditions.NewRegistry())
	tmpl, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if tmpl.Name != "nested-combinators" {
		t.Errorf("got name %q, want nested-combinators", tmpl.Name)
	}
	if !tmpl.Enabled {
		t.Error("expected template to be enabled after a clean parse")
	}

	built, err := tmpl.Build(barsAt(1, 2, 3), conditions.NewRegistry())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(built.Entry) != 1 {
		t.Fatalf("expected a single top-level entry condition, got %d", len(built.Entry))
	}
	if built.Entry[0].Name() != "and" {
		t.Errorf("expected the entry root to be an and-combinator, got %q", built.Entry[0].Name())
	}
	if len(built.Filters) != 1 {
		t.Fatalf("expected one filter condition, got %d", len(built.Filters))
	}
}

func TestLoaderDisablesStrategyWhenEntryPrunedToEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "unknown.yaml", unknownTypeYAML)

	l := strategy.NewLoader(zap.NewNop(), conditions.NewRegistry())
	tmpl, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if tmpl.Enabled {
		t.Error("expected a strategy with an unknown-type-only entry to be disabled after pruning")
	}
}

func TestLoadDirectorySkipsUnparseableFilesAndSortsByName(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "b-nested.yaml", nestedStrategyYAML)
	writeFixture(t, dir, "a-broken.yaml", "not: [valid: yaml: at all")
	writeFixture(t, dir, "c-ignored.txt", nestedStrategyYAML)

	l := strategy.NewLoader(zap.NewNop(), conditions.NewRegistry())
	templates, err := l.LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("expected only the one valid .yaml document to load, got %d", len(templates))
	}
	if templates[0].Name != "nested-combinators" {
		t.Errorf("got %q, want nested-combinators", templates[0].Name)
	}
}

func TestLoadFileRejectsInvalidTimeframe(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "bad-tf.yaml", `
name: bad-timeframe
timeframe: 7q
direction: long
entry:
  conditions:
    - type: price_above
      level: 1
exit:
  stop_loss:
    type: percent
    percent: 1
  take_profit:
    type: risk_reward
    ratio: 1
`)
	l := strategy.NewLoader(zap.NewNop(), conditions.NewRegistry())
	if _, err := l.LoadFile(path); err == nil {
		t.Error("expected an invalid timeframe to be rejected")
	}
}
