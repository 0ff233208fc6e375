package strategy

import (
	"fmt"

	"github.com/atlas-desktop/structurelab/internal/conditions"
)

// ConditionDoc is the raw, unbuilt shape of one condition node in a
// strategy document: either a leaf referencing a registry type, or a
// combinator (and/or/not/group/sequence) nesting further ConditionDocs.
type ConditionDoc struct {
	Type           string                 `yaml:"type"`
	Params         map[string]interface{} `yaml:",inline"`
	Left           *ConditionDoc          `yaml:"left,omitempty"`
	Right          *ConditionDoc          `yaml:"right,omitempty"`
	Inner          *ConditionDoc          `yaml:"inner,omitempty"`
	Conditions     []ConditionDoc         `yaml:"conditions,omitempty"`
	Steps          []ConditionDoc         `yaml:"steps,omitempty"`
	Mode           string                 `yaml:"mode,omitempty"`
	MaxBarsBetween int                    `yaml:"max_bars_between,omitempty"`
	Name           string                 `yaml:"name,omitempty"`
}

// build recursively constructs a conditions.Condition from this document
// node, delegating leaf types to the registry and handling the five
// combinator types directly.
func (doc ConditionDoc) build(reg *conditions.Registry, det *conditions.Detectors) (conditions.Condition, error) {
	switch doc.Type {
	case "and":
		if doc.Left == nil || doc.Right == nil {
			return nil, fmt.Errorf("and condition requires left and right")
		}
		l, err := doc.Left.build(reg, det)
		if err != nil {
			return nil, err
		}
		r, err := doc.Right.build(reg, det)
		if err != nil {
			return nil, err
		}
		return &conditions.And{Left: l, Right: r}, nil

	case "or":
		if doc.Left == nil || doc.Right == nil {
			return nil, fmt.Errorf("or condition requires left and right")
		}
		l, err := doc.Left.build(reg, det)
		if err != nil {
			return nil, err
		}
		r, err := doc.Right.build(reg, det)
		if err != nil {
			return nil, err
		}
		return &conditions.Or{Left: l, Right: r}, nil

	case "not":
		if doc.Inner == nil {
			return nil, fmt.Errorf("not condition requires inner")
		}
		inner, err := doc.Inner.build(reg, det)
		if err != nil {
			return nil, err
		}
		return &conditions.Not{Inner: inner}, nil

	case "group":
		built := make([]conditions.Condition, 0, len(doc.Conditions))
		for i := range doc.Conditions {
			c, err := doc.Conditions[i].build(reg, det)
			if err != nil {
				return nil, err
			}
			built = append(built, c)
		}
		mode := conditions.GroupAll
		if doc.Mode == string(conditions.GroupAny) {
			mode = conditions.GroupAny
		}
		return &conditions.Group{Mode: mode, Conditions: built}, nil

	case "sequence":
		steps := make([]conditions.Condition, 0, len(doc.Steps))
		for i := range doc.Steps {
			c, err := doc.Steps[i].build(reg, det)
			if err != nil {
				return nil, err
			}
			steps = append(steps, c)
		}
		return &conditions.Sequence{Name_: doc.Name, Steps: steps, MaxBarsBetween: doc.MaxBarsBetween}, nil

	default:
		return reg.Build(doc.Type, conditions.Params(doc.Params), det)
	}
}
