package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tellae/eqasim/internal/cache"
	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/dag"
	"github.com/tellae/eqasim/internal/journal"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
	"github.com/tellae/eqasim/internal/testutil"
)

// recorder tracks stage executions across runs, guarded for concurrent
// workers.
type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func (r *recorder) count(name string) int {
	n := 0
	for _, ran := range r.names() {
		if ran == name {
			n++
		}
	}
	return n
}

type stageResult struct {
	Stage string `cbor:"stage"`
}

// countingStage registers a stage that records each execution and returns
// a cacheable result.
func countingStage(r *registry.Registry, rec *recorder, name string, deps []string) {
	r.RegisterStage(&stage.Descriptor{
		Name: name,
		Configure: func(c *stage.Configurator) {
			for _, dep := range deps {
				c.Stage(dep)
			}
		},
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			rec.add(name)
			return &stageResult{Stage: name}, nil
		},
		NewResult: func() any { return new(stageResult) },
	})
}

func failingStage(r *registry.Registry, name string, deps []string, err error) {
	r.RegisterStage(&stage.Descriptor{
		Name: name,
		Configure: func(c *stage.Configurator) {
			for _, dep := range deps {
				c.Stage(dep)
			}
		},
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			return nil, err
		},
		NewResult: func() any { return new(stageResult) },
	})
}

func buildGraph(t *testing.T, ctx context.Context, r *registry.Registry, run []string, params map[string]any) *dag.Graph {
	t.Helper()
	if params == nil {
		params = map[string]any{}
	}
	doc := &config.Document{WorkingDirectory: t.TempDir(), Run: run, Params: params}
	graph, err := dag.Build(ctx, doc, r)
	require.NoError(t, err)
	return graph
}

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return store
}

func TestRunExecutesDependenciesFirst(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	countingStage(r, rec, "data.census.raw", nil)
	countingStage(r, rec, "data.census.cleaned", []string{"data.census.raw"})
	countingStage(r, rec, "synthesis.population.sampled", []string{"data.census.cleaned"})
	graph := buildGraph(t, ctx, r, []string{"synthesis.population.sampled"}, nil)

	exec := New(graph, Options{Workers: 4, Store: openStore(t), RunID: "run-1"})
	require.NoError(t, exec.Run(ctx))

	assert.Equal(t, []string{"data.census.raw", "data.census.cleaned", "synthesis.population.sampled"}, rec.names())
	node := graph.Nodes["synthesis.population.sampled"]
	assert.Equal(t, dag.Done, node.State())
	assert.Equal(t, dag.ActionExecuted, node.Action)
	assert.NotEmpty(t, node.Fingerprint)
}

func TestRunPassesDependencyResults(t *testing.T) {
	ctx, _ := testutil.Context(t)
	r := registry.New()
	rec := &recorder{}
	countingStage(r, rec, "upstream", nil)

	var got string
	r.RegisterStage(&stage.Descriptor{
		Name: "downstream",
		Configure: func(c *stage.Configurator) {
			c.Stage("upstream")
		},
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			result, err := stage.ResultOf[*stageResult](rt, "upstream")
			if err != nil {
				return nil, err
			}
			got = result.Stage
			return &stageResult{Stage: "downstream"}, nil
		},
		NewResult: func() any { return new(stageResult) },
	})
	graph := buildGraph(t, ctx, r, []string{"downstream"}, nil)

	exec := New(graph, Options{Workers: 2, Store: openStore(t)})
	require.NoError(t, exec.Run(ctx))

	assert.Equal(t, "upstream", got)
}

func TestRunReusesCacheOnSecondRun(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	countingStage(r, rec, "data.census.raw", nil)
	countingStage(r, rec, "data.census.cleaned", []string{"data.census.raw"})
	store := openStore(t)

	first := buildGraph(t, ctx, r, []string{"data.census.cleaned"}, nil)
	require.NoError(t, New(first, Options{Workers: 2, Store: store}).Run(ctx))

	second := buildGraph(t, ctx, r, []string{"data.census.cleaned"}, nil)
	require.NoError(t, New(second, Options{Workers: 2, Store: store}).Run(ctx))

	// Each stage executed exactly once; the second run was all cache hits.
	assert.Equal(t, 1, rec.count("data.census.raw"))
	assert.Equal(t, 1, rec.count("data.census.cleaned"))
	assert.Equal(t, dag.ActionCached, second.Nodes["data.census.cleaned"].Action)

	// Cached results are decoded, not recomputed, and still typed.
	loaded, ok := second.Nodes["data.census.cleaned"].Result.(*stageResult)
	require.True(t, ok)
	assert.Equal(t, "data.census.cleaned", loaded.Stage)
}

func TestRunParameterChangeDevalidatesCache(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	r.RegisterStage(&stage.Descriptor{
		Name: "synthesis.population.sampled",
		Configure: func(c *stage.Configurator) {
			c.Config("sampling_rate")
		},
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			rec.add("synthesis.population.sampled")
			return &stageResult{Stage: "sampled"}, nil
		},
		NewResult: func() any { return new(stageResult) },
	})
	store := openStore(t)

	first := buildGraph(t, ctx, r, []string{"synthesis.population.sampled"},
		map[string]any{"sampling_rate": 0.05})
	require.NoError(t, New(first, Options{Workers: 1, Store: store}).Run(ctx))

	second := buildGraph(t, ctx, r, []string{"synthesis.population.sampled"},
		map[string]any{"sampling_rate": 0.10})
	require.NoError(t, New(second, Options{Workers: 1, Store: store}).Run(ctx))

	assert.Equal(t, 2, rec.count("synthesis.population.sampled"))
	assert.NotEqual(t, first.Nodes["synthesis.population.sampled"].Fingerprint,
		second.Nodes["synthesis.population.sampled"].Fingerprint)
}

func TestRunForceReexecutes(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	countingStage(r, rec, "data.hts.trips", nil)
	store := openStore(t)

	first := buildGraph(t, ctx, r, []string{"data.hts.trips"}, nil)
	require.NoError(t, New(first, Options{Workers: 1, Store: store}).Run(ctx))

	second := buildGraph(t, ctx, r, []string{"data.hts.trips"}, nil)
	require.NoError(t, New(second, Options{Workers: 1, Store: store, Force: true}).Run(ctx))

	assert.Equal(t, 2, rec.count("data.hts.trips"))
	assert.Equal(t, dag.ActionExecuted, second.Nodes["data.hts.trips"].Action)
}

func TestRunFailureSkipsDependents(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	boom := errors.New("persons.csv: no such file")
	failingStage(r, "data.hts.trips", nil, boom)
	countingStage(r, rec, "synthesis.population.matched", []string{"data.hts.trips"})
	countingStage(r, rec, "synthesis.output", []string{"synthesis.population.matched"})
	graph := buildGraph(t, ctx, r, []string{"synthesis.output"}, nil)

	err := New(graph, Options{Workers: 2, Store: openStore(t)}).Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "data.hts.trips")
	assert.Equal(t, dag.ActionFailed, graph.Nodes["data.hts.trips"].Action)
	assert.Equal(t, dag.ActionSkipped, graph.Nodes["synthesis.population.matched"].Action)
	assert.Equal(t, dag.ActionSkipped, graph.Nodes["synthesis.output"].Action)
	assert.Empty(t, rec.names(), "dependents of a failed stage must not run")
}

func TestRunValidateFailureAbortsBeforeExecution(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	countingStage(r, rec, "data.census.raw", nil)
	r.RegisterStage(&stage.Descriptor{
		Name:      "data.census.cleaned",
		Configure: func(c *stage.Configurator) { c.Stage("data.census.raw") },
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			rec.add("data.census.cleaned")
			return &stageResult{}, nil
		},
		Validate: func(ctx context.Context, vd *stage.Validator) (string, error) {
			return "", errors.New("census zip missing")
		},
		NewResult: func() any { return new(stageResult) },
	})
	graph := buildGraph(t, ctx, r, []string{"data.census.cleaned"}, nil)

	err := New(graph, Options{Workers: 2, Store: openStore(t)}).Run(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `validating stage "data.census.cleaned"`)
	assert.Empty(t, rec.names(), "validation failures must abort before any execution")
}

func TestRunValidateTokenChangesFingerprint(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	token := "size=100"
	r.RegisterStage(&stage.Descriptor{
		Name:      "data.census.raw",
		Configure: func(c *stage.Configurator) {},
		Execute: func(ctx context.Context, rt *stage.Runtime) (any, error) {
			rec.add("data.census.raw")
			return &stageResult{Stage: "raw"}, nil
		},
		Validate: func(ctx context.Context, vd *stage.Validator) (string, error) {
			return token, nil
		},
		NewResult: func() any { return new(stageResult) },
	})
	store := openStore(t)

	first := buildGraph(t, ctx, r, []string{"data.census.raw"}, nil)
	require.NoError(t, New(first, Options{Workers: 1, Store: store}).Run(ctx))

	// The input file "changed": same config, different validate token.
	token = "size=200"
	second := buildGraph(t, ctx, r, []string{"data.census.raw"}, nil)
	require.NoError(t, New(second, Options{Workers: 1, Store: store}).Run(ctx))

	assert.Equal(t, 2, rec.count("data.census.raw"))
}

func TestRunJournalsOutcomes(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	boom := errors.New("broken input")
	countingStage(r, rec, "data.spatial.codes", nil)
	failingStage(r, "data.hts.trips", nil, boom)
	countingStage(r, rec, "synthesis.population.matched", []string{"data.spatial.codes", "data.hts.trips"})
	graph := buildGraph(t, ctx, r, []string{"synthesis.population.matched"}, nil)

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.StartRun(ctx, "run-1", "rennes.yml"))

	runErr := New(graph, Options{Workers: 1, Store: openStore(t), Journal: j, RunID: "run-1"}).Run(ctx)
	require.Error(t, runErr)
	require.NoError(t, j.FinishRun(ctx, "run-1", false))

	runs, err := j.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)
	// data.spatial.codes may have executed or been skipped depending on
	// scheduling; every stage must be accounted for exactly once.
	assert.GreaterOrEqual(t, runs[0].Skipped, 1)
	total := runs[0].Executed + runs[0].Cached + runs[0].Failed + runs[0].Skipped
	assert.Equal(t, len(graph.Nodes), total)
}

func TestRunFanOutRunsWideGraphs(t *testing.T) {
	ctx, _ := testutil.Context(t)
	rec := &recorder{}
	r := registry.New()
	countingStage(r, rec, "root", nil)
	var leaves []string
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("leaf.%02d", i)
		leaves = append(leaves, name)
		countingStage(r, rec, name, []string{"root"})
	}
	countingStage(r, rec, "sink", leaves)
	graph := buildGraph(t, ctx, r, []string{"sink"}, nil)

	require.NoError(t, New(graph, Options{Workers: 8, Store: openStore(t)}).Run(ctx))

	assert.Equal(t, 18, len(rec.names()))
	names := rec.names()
	assert.Equal(t, "root", names[0])
	assert.Equal(t, "sink", names[len(names)-1])
}
