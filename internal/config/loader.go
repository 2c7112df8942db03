package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Loader is the interface for a format-specific configuration loader. A
// loader reads one file and translates it into the format-agnostic
// Document model.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// ForPath selects a loader by file extension: .yml and .yaml use the YAML
// loader, .hcl the HCL loader.
func ForPath(path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return &YAMLLoader{}, nil
	case ".hcl":
		return &HCLLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported configuration format %q (want .yml, .yaml or .hcl)", filepath.Ext(path))
	}
}

// normalizeValue reduces loader output to the small set of Go shapes the
// rest of the engine understands: int, float64, string, bool, []any and
// map[string]any. Numeric typing may still differ between loaders (HCL
// cannot tell 4.0 from 4), so consumers convert through config.AsInt and
// config.AsFloat instead of type-asserting.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case int64:
		return int(t)
	case uint64:
		return int(t)
	default:
		return v
	}
}

// normalizeParams applies normalizeValue to every parameter in place and
// returns the map for chaining.
func normalizeParams(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	for k, v := range params {
		params[k] = normalizeValue(v)
	}
	return params
}
