package stage

import (
	"fmt"

	"github.com/tellae/eqasim/internal/config"
)

// Params provides typed access to the configuration values a stage declared.
// Undeclared keys are errors: a stage that silently read keys it never
// declared would have an incomplete cache fingerprint.
type Params struct {
	stage  string
	values map[string]any
}

// NewParams wraps resolved configuration values for the named stage.
func NewParams(stageName string, values map[string]any) Params {
	return Params{stage: stageName, values: values}
}

// Config returns the raw value of a declared configuration key.
func (p Params) Config(key string) (any, error) {
	v, ok := p.values[key]
	if !ok {
		return nil, fmt.Errorf("stage %q reads config key %q without declaring it in Configure", p.stage, key)
	}
	return v, nil
}

// String returns a declared configuration value as a string.
func (p Params) String(key string) (string, error) {
	v, err := p.Config(key)
	if err != nil {
		return "", err
	}
	s, ok := config.AsString(v)
	if !ok {
		return "", fmt.Errorf("stage %q: config key %q is not a string (got %T)", p.stage, key, v)
	}
	return s, nil
}

// Int returns a declared configuration value as an int.
func (p Params) Int(key string) (int, error) {
	v, err := p.Config(key)
	if err != nil {
		return 0, err
	}
	n, ok := config.AsInt(v)
	if !ok {
		return 0, fmt.Errorf("stage %q: config key %q is not an integer (got %v)", p.stage, key, v)
	}
	return n, nil
}

// Float returns a declared configuration value as a float64.
func (p Params) Float(key string) (float64, error) {
	v, err := p.Config(key)
	if err != nil {
		return 0, err
	}
	f, ok := config.AsFloat(v)
	if !ok {
		return 0, fmt.Errorf("stage %q: config key %q is not a number (got %v)", p.stage, key, v)
	}
	return f, nil
}

// Strings returns a declared configuration value as a slice of strings.
// Sequences of integers are accepted and formatted, since geographic codes
// are written both quoted and bare in the wild.
func (p Params) Strings(key string) ([]string, error) {
	v, err := p.Config(key)
	if err != nil {
		return nil, err
	}
	ss, ok := config.AsStrings(v)
	if !ok {
		return nil, fmt.Errorf("stage %q: config key %q is not a sequence of codes (got %v)", p.stage, key, v)
	}
	return ss, nil
}

// Validator is handed to a stage's Validate function. It exposes the
// stage's declared configuration but no dependency results: validation
// runs before anything executes.
type Validator struct {
	Params
}

// NewValidator wraps resolved configuration values for a validate call.
func NewValidator(stageName string, values map[string]any) *Validator {
	return &Validator{Params: NewParams(stageName, values)}
}
