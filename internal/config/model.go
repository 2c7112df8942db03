package config

import (
	"fmt"
	"math"
)

// Well-known parameter keys. Arbitrary additional keys are allowed in the
// config block and passed to stages untouched; only these carry types the
// document validator checks.
const (
	KeyProcesses    = "processes"
	KeyHTS          = "hts"
	KeySamplingRate = "sampling_rate"
	KeyRandomSeed   = "random_seed"
	KeyDataPath     = "data_path"
	KeyOutputPath   = "output_path"
	KeyOutputPrefix = "output_prefix"
	KeyJavaMemory   = "java_memory"
	KeyCensusPath   = "census_path"
	KeyRegions      = "regions"
	KeyDepartments  = "departments"
)

// Document is the parsed pipeline configuration document.
type Document struct {
	// WorkingDirectory holds cached stage results and the run journal.
	WorkingDirectory string

	// Run lists the stage names the pipeline must materialize, in the
	// order the user wrote them. Transitive dependencies are implied.
	Run []string

	// Params is the config block: parameters stages declare and consume.
	Params map[string]any

	// Path is the file the document was loaded from, for logs and the
	// journal.
	Path string
}

// Param returns the raw value for a parameter key.
func (d *Document) Param(key string) (any, bool) {
	v, ok := d.Params[key]
	return v, ok
}

// AsInt converts a loader-normalized parameter value to an int. Accepts
// integral floats, since YAML and HCL do not distinguish 4 from 4.0.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// AsFloat converts a loader-normalized parameter value to a float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// AsString converts a loader-normalized parameter value to a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsStrings converts a loader-normalized sequence to a slice of strings.
// Elements may be strings or integers: geographic codes are written both
// ways in the wild (regions: [53] and departments: ["35"] mean the same
// kind of thing).
func AsStrings(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, true
		}
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch e := item.(type) {
		case string:
			out = append(out, e)
		case int:
			out = append(out, fmt.Sprintf("%d", e))
		case int64:
			out = append(out, fmt.Sprintf("%d", e))
		case uint64:
			out = append(out, fmt.Sprintf("%d", e))
		default:
			return nil, false
		}
	}
	return out, true
}
