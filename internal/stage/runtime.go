package stage

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// Runtime is handed to a stage's Execute function. It carries everything a
// stage may touch while executing: declared configuration, dependency
// results, a deterministic RNG, and bounded parallelism helpers.
type Runtime struct {
	Params

	name      string
	results   map[string]any
	rng       *rand.Rand
	processes int
}

// NewRuntime assembles the runtime for one stage execution. results holds
// the results of the stage's declared dependencies keyed by stage name,
// rngSeed the per-stage seed, and processes the parallelism bound.
func NewRuntime(stageName string, values map[string]any, results map[string]any, rngSeed int64, processes int) *Runtime {
	if processes < 1 {
		processes = 1
	}
	return &Runtime{
		Params:    NewParams(stageName, values),
		name:      stageName,
		results:   results,
		rng:       rand.New(rand.NewSource(rngSeed)),
		processes: processes,
	}
}

// Name returns the executing stage's name.
func (rt *Runtime) Name() string {
	return rt.name
}

// Result returns the raw result of a declared dependency.
func (rt *Runtime) Result(name string) (any, error) {
	v, ok := rt.results[name]
	if !ok {
		return nil, fmt.Errorf("stage %q reads stage %q without declaring it in Configure", rt.name, name)
	}
	return v, nil
}

// ResultOf returns the result of a declared dependency as its concrete type.
func ResultOf[T any](rt *Runtime, name string) (T, error) {
	var zero T
	v, err := rt.Result(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("stage %q: result of %q is %T, not %T", rt.name, name, v, zero)
	}
	return typed, nil
}

// RNG returns the stage's deterministic random source, seeded from the run
// seed and the stage name. It is not safe for concurrent use: stages that
// fan out with ForEach must derive per-item seeds from it beforehand.
//
// A stage that draws from the RNG must declare the random_seed config key
// so its cached result devalidates when the seed changes.
func (rt *Runtime) RNG() *rand.Rand {
	return rt.rng
}

// Processes returns the run's parallelism bound.
func (rt *Runtime) Processes() int {
	return rt.processes
}

// ForEach runs fn for every index in [0, n) on up to Processes goroutines.
// The first error cancels the remaining work and is returned.
func (rt *Runtime) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(rt.processes)
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return fn(groupCtx, i)
		})
	}
	return group.Wait()
}
