package conditions

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// decimalParam decodes a YAML-sourced numeric/string param into a decimal,
// accepting the shapes a yaml.v3 decode into map[string]interface{}
// produces (float64, int, string).
func decimalParam(p Params, key string) (decimal.Decimal, error) {
	v, ok := p[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing param %q", key)
	}
	switch t := v.(type) {
	case string:
		return decimal.NewFromString(t)
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	default:
		return decimal.Zero, fmt.Errorf("param %q has unsupported type %T", key, v)
	}
}

func decimalParamOr(p Params, key string, def decimal.Decimal) decimal.Decimal {
	d, err := decimalParam(p, key)
	if err != nil {
		return def
	}
	return d
}

func intParam(p Params, key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing param %q", key)
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("param %q has unsupported type %T", key, v)
	}
}

func intParamOr(p Params, key string, def int) int {
	v, err := intParam(p, key)
	if err != nil {
		return def
	}
	return v
}

func stringParam(p Params, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q has unsupported type %T", key, v)
	}
	return s, nil
}

func stringParamOr(p Params, key, def string) string {
	v, err := stringParam(p, key)
	if err != nil {
		return def
	}
	return v
}

func intSliceParam(p Params, key string) ([]int, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param %q", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %q has unsupported type %T", key, v)
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		switch t := item.(type) {
		case int:
			out = append(out, t)
		case float64:
			out = append(out, int(t))
		default:
			return nil, fmt.Errorf("param %q element has unsupported type %T", key, item)
		}
	}
	return out, nil
}

// levelParam decodes a level parameter, which may be a bare scalar number,
// or a map with "context_key" or "computed" naming an indirect resolution.
func levelParam(p Params, key string) (Level, error) {
	v, ok := p[key]
	if !ok {
		return Level{}, fmt.Errorf("missing param %q", key)
	}
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err == nil {
			return Level{Kind: LevelScalar, Scalar: d}, nil
		}
		return Level{}, fmt.Errorf("param %q not a decimal string: %w", key, err)
	case float64:
		return Level{Kind: LevelScalar, Scalar: decimal.NewFromFloat(t)}, nil
	case int:
		return Level{Kind: LevelScalar, Scalar: decimal.NewFromInt(int64(t))}, nil
	case map[string]interface{}:
		if ck, ok := t["context_key"].(string); ok {
			return Level{Kind: LevelContextKey, ContextKey: ck}, nil
		}
		if cp, ok := t["computed"].(string); ok {
			return Level{Kind: LevelComputed, Computed: cp}, nil
		}
		return Level{}, fmt.Errorf("param %q map missing context_key/computed", key)
	default:
		return Level{}, fmt.Errorf("param %q has unsupported type %T", key, v)
	}
}
