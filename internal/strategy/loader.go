package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/indicators"
	"github.com/atlas-desktop/structurelab/internal/structure"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// document is the top-level YAML shape of one strategy file (§4.7):
// entry conditions nest under entry.conditions, stop-loss/take-profit
// nest under exit, mirroring the document's published hierarchical
// mapping rather than a flattened ad hoc shape.
type document struct {
	Name         string         `yaml:"name"`
	Timeframe    string         `yaml:"timeframe"`
	Direction    string         `yaml:"direction"`
	Description  string         `yaml:"description"`
	Entry        entryDoc       `yaml:"entry"`
	Filters      []ConditionDoc `yaml:"filters"`
	Exit         exitDoc        `yaml:"exit"`
	RiskPercent  float64        `yaml:"risk_percent"`
	MaxPositions int            `yaml:"max_positions"`
	Enabled      *bool          `yaml:"enabled"`
}

type entryDoc struct {
	Conditions []ConditionDoc `yaml:"conditions"`
}

type exitDoc struct {
	StopLoss   types.SLConfig `yaml:"stop_loss"`
	TakeProfit types.TPConfig `yaml:"take_profit"`
}

// Template is a parsed, not-yet-materialized strategy document: entry and
// filter condition trees are built lazily against a specific candle table
// by Build, since the false-breakout detector binds to that table's ATR
// series (§4.5). Everything structure-detector-agnostic — the document's
// own fields — is resolved eagerly at load time.
type Template struct {
	Name         string
	Timeframe    types.Timeframe
	Direction    types.Direction
	entryDocs    []ConditionDoc
	filterDocs   []ConditionDoc
	StopLoss     types.SLConfig
	TakeProfit   types.TPConfig
	RiskPercent  float64
	MaxPositions int
	Enabled      bool
}

// Build materializes a concrete, evaluable Strategy for the given candle
// table: it constructs a fresh detector bundle scoped to this table (so
// the false-breakout ATR series always matches the table it scans) and
// walks every entry/filter ConditionDoc through the registry.
func (t *Template) Build(candles types.Candles, reg *conditions.Registry) (*Strategy, error) {
	swings := structure.NewSwingDetector(structure.DefaultSwingConfig())
	det := &conditions.Detectors{
		Swings:   swings,
		Breaks:   structure.NewBreakDetector(structure.DefaultBreakConfig(), swings),
		Ranges:   structure.NewRangeDetector(structure.DefaultRangeConfig(), swings),
		FB:       structure.NewFalseBreakoutDetector(structure.DefaultFBConfig(), indicators.ATR14Series(candles)),
		Sweep:    structure.NewFalseBreakoutDetector(structure.LiquiditySweepConfig(), indicators.ATR14Series(candles)),
		Analyzer: structure.NewStructureAnalyzer(swings),
	}

	entry, err := buildAll(t.entryDocs, reg, det)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: entry conditions: %w", t.Name, err)
	}
	filters, err := buildAll(t.filterDocs, reg, det)
	if err != nil {
		return nil, fmt.Errorf("strategy %q: filter conditions: %w", t.Name, err)
	}

	riskPct := decimal.NewFromFloat(t.RiskPercent)
	return &Strategy{
		Name:         t.Name,
		Timeframe:    t.Timeframe,
		Direction:    t.Direction,
		Entry:        entry,
		Filters:      filters,
		StopLoss:     t.StopLoss,
		TakeProfit:   t.TakeProfit,
		RiskPercent:  riskPct,
		MaxPositions: t.MaxPositions,
		Enabled:      t.Enabled,
		Swings:       swings,
	}, nil
}

func buildAll(docs []ConditionDoc, reg *conditions.Registry, det *conditions.Detectors) ([]conditions.Condition, error) {
	out := make([]conditions.Condition, 0, len(docs))
	for i := range docs {
		c, err := docs[i].build(reg, det)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Loader parses strategy documents from disk directly with yaml.v3 (see
// LoadFile) against the closed condition registry. A condition whose type
// (or any nested leaf's type) is unknown or malformed is logged and
// skipped rather than aborting the whole document (§9); a document left
// with zero entry conditions after that pruning is disabled rather than
// dropped. A constructor error for a condition that survives pruning (a
// bad or missing parameter) is not skipped: Template.Build returns it and
// builds no strategy.
type Loader struct {
	logger   *zap.Logger
	registry *conditions.Registry
}

// NewLoader creates a Loader backed by the given registry. Pass
// conditions.NewRegistry() unless a caller needs a restricted subset.
func NewLoader(logger *zap.Logger, registry *conditions.Registry) *Loader {
	return &Loader{logger: logger, registry: registry}
}

// LoadFile parses a single strategy document. Strategy documents are
// decoded directly with yaml.v3 rather than through viper: the condition
// tree's inline-map leftover-key capture (ConditionDoc.Params) relies on
// yaml.v3's inline-map semantics, which viper's mapstructure decode does
// not reproduce. viper is reserved for the flat EngineConfig (flags, env,
// config file layering) in cmd/backtest.
func (l *Loader) LoadFile(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy document %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing strategy document %s: %w", path, err)
	}

	if doc.Name == "" {
		return nil, fmt.Errorf("strategy document %s: missing name", path)
	}
	tf := types.Timeframe(doc.Timeframe)
	if !tf.Valid() {
		return nil, fmt.Errorf("strategy document %s: invalid timeframe %q", path, doc.Timeframe)
	}

	entry := l.pruneUnknown(doc.Name, "entry", doc.Entry.Conditions)
	filters := l.pruneUnknown(doc.Name, "filter", doc.Filters)

	enabled := true
	if doc.Enabled != nil {
		enabled = *doc.Enabled
	}
	if len(entry) == 0 {
		l.logger.Warn("strategy disabled: no usable entry conditions remain after pruning",
			zap.String("strategy", doc.Name))
		enabled = false
	}

	return &Template{
		Name:         doc.Name,
		Timeframe:    tf,
		Direction:    types.Direction(doc.Direction),
		entryDocs:    entry,
		filterDocs:   filters,
		StopLoss:     doc.Exit.StopLoss,
		TakeProfit:   doc.Exit.TakeProfit,
		RiskPercent:  doc.RiskPercent,
		MaxPositions: doc.MaxPositions,
		Enabled:      enabled,
	}, nil
}

// pruneUnknown drops (and warns about) condition nodes whose type, or any
// nested leaf's type, the registry does not recognize. Combinator shells
// (and/or/not/group/sequence) are always kept; only unknown leaf types are
// pruned, dropping their immediate parent document entirely if it cannot
// be repaired.
func (l *Loader) pruneUnknown(strategyName, section string, docs []ConditionDoc) []ConditionDoc {
	out := make([]ConditionDoc, 0, len(docs))
	for _, d := range docs {
		if l.isWellFormed(d) {
			out = append(out, d)
			continue
		}
		l.logger.Warn("skipping condition with unknown or malformed type",
			zap.String("strategy", strategyName),
			zap.String("section", section),
			zap.String("type", d.Type))
	}
	return out
}

func (l *Loader) isWellFormed(d ConditionDoc) bool {
	switch d.Type {
	case "and":
		return d.Left != nil && d.Right != nil && l.isWellFormed(*d.Left) && l.isWellFormed(*d.Right)
	case "or":
		return d.Left != nil && d.Right != nil && l.isWellFormed(*d.Left) && l.isWellFormed(*d.Right)
	case "not":
		return d.Inner != nil && l.isWellFormed(*d.Inner)
	case "group":
		for _, c := range d.Conditions {
			if !l.isWellFormed(c) {
				return false
			}
		}
		return len(d.Conditions) > 0
	case "sequence":
		for _, c := range d.Steps {
			if !l.isWellFormed(c) {
				return false
			}
		}
		return len(d.Steps) > 0
	default:
		return l.registry.Known(d.Type)
	}
}

// LoadDirectory parses every strategy document in dir (non-recursive,
// *.yml/*.yaml files only), skipping and logging any file that fails to
// parse so one bad document never blocks the rest of the batch.
func (l *Loader) LoadDirectory(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading strategy directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	templates := make([]*Template, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		tmpl, err := l.LoadFile(path)
		if err != nil {
			l.logger.Warn("skipping unparseable strategy document", zap.String("path", path), zap.Error(err))
			continue
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
