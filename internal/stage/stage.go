package stage

import (
	"context"
	"fmt"
	"sort"
)

// Descriptor describes one registered pipeline stage.
type Descriptor struct {
	// Name is the dotted stage name, e.g. "synthesis.population.income".
	Name string

	// Configure declares dependencies and configuration keys. It must be
	// deterministic: the engine may call it more than once.
	Configure func(c *Configurator)

	// Execute computes the stage result. The returned value is shared with
	// downstream stages and persisted to the working-directory cache.
	Execute func(ctx context.Context, rt *Runtime) (any, error)

	// Validate is optional. It checks the stage's external inputs before
	// any execution starts and returns a fingerprint token (for file-backed
	// stages usually the input file size). A nil Validate contributes an
	// empty token.
	Validate func(ctx context.Context, vd *Validator) (string, error)

	// NewResult allocates the value a cached payload is decoded into,
	// e.g. func() any { return new([]popdata.Municipality) }. Stages
	// without it are never served from cache.
	NewResult func() any
}

// Param is one declared configuration key.
type Param struct {
	Default    any
	HasDefault bool
}

// Plan is the outcome of a stage's configure phase: the stages it depends
// on and the configuration keys it reads.
type Plan struct {
	// Stages lists dependency stage names in declaration order, deduplicated.
	Stages []string
	// Params maps declared configuration keys to their default settings.
	Params map[string]Param
}

// Configurator collects declarations during the configure phase.
type Configurator struct {
	plan Plan
	seen map[string]bool
}

// NewConfigurator returns an empty Configurator.
func NewConfigurator() *Configurator {
	return &Configurator{
		plan: Plan{Params: make(map[string]Param)},
		seen: make(map[string]bool),
	}
}

// Stage declares a dependency on another stage by name.
func (c *Configurator) Stage(name string) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.plan.Stages = append(c.plan.Stages, name)
}

// Config declares a configuration key the stage reads. The key becomes
// mandatory: resolution fails when the document does not provide it.
func (c *Configurator) Config(key string) {
	if _, ok := c.plan.Params[key]; ok {
		return
	}
	c.plan.Params[key] = Param{}
}

// ConfigWithDefault declares a configuration key with a fallback used when
// the document does not provide the key.
func (c *Configurator) ConfigWithDefault(key string, fallback any) {
	if _, ok := c.plan.Params[key]; ok {
		return
	}
	c.plan.Params[key] = Param{Default: fallback, HasDefault: true}
}

// Plan returns the collected declarations.
func (c *Configurator) Plan() *Plan {
	return &c.plan
}

// Resolve maps every declared key to its value: the document's when present,
// the declared default otherwise. Keys that are neither provided nor
// defaulted are returned in missing, so callers can report them all at once.
func (p *Plan) Resolve(documentParams map[string]any) (values map[string]any, missing []string) {
	values = make(map[string]any, len(p.Params))
	for key, param := range p.Params {
		if v, ok := documentParams[key]; ok {
			values[key] = v
			continue
		}
		if param.HasDefault {
			values[key] = param.Default
			continue
		}
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return values, missing
}

// Check verifies a descriptor is complete enough to register. Returning an
// error instead of panicking lets the registry own the panic policy.
func (d *Descriptor) Check() error {
	if d.Name == "" {
		return fmt.Errorf("stage descriptor has no name")
	}
	if d.Configure == nil {
		return fmt.Errorf("stage %q has no Configure function", d.Name)
	}
	if d.Execute == nil {
		return fmt.Errorf("stage %q has no Execute function", d.Name)
	}
	return nil
}
