package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tellae/eqasim/internal/cache"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/dag"
	"github.com/tellae/eqasim/internal/journal"
	"github.com/tellae/eqasim/internal/stage"
)

// Options configures an executor run.
type Options struct {
	// Workers sizes the worker pool and bounds the parallelism handed to
	// stages. Values below 1 are treated as 1.
	Workers int

	// Force re-executes every stage even when a valid cache entry exists.
	// Results are still written back to the cache.
	Force bool

	// RunID identifies this run in logs and the journal.
	RunID string

	// Store is the working-directory result cache.
	Store *cache.Store

	// Journal records stage outcomes. It may be nil; recording is
	// best-effort either way and never fails the run.
	Journal *journal.Journal
}

// Executor runs one resolved graph. It is single-use: construct, Run, discard.
type Executor struct {
	graph   *dag.Graph
	workers int
	force   bool
	runID   string
	store   *cache.Store
	journal *journal.Journal
	wg      sync.WaitGroup
}

// New assembles an executor over a resolved graph.
func New(graph *dag.Graph, opts Options) *Executor {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:   graph,
		workers: workers,
		force:   opts.Force,
		runID:   opts.RunID,
		store:   opts.Store,
		journal: opts.Journal,
	}
}

// Run executes the entire graph concurrently and returns an error if any
// stage fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := e.validate(ctx); err != nil {
		return err
	}

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root stages...")
	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.DepCount() == 0 {
			logger.Debug("Found root stage.", "stage", node.Name)
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Found all root stages.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Info("Waiting for all stages to complete...")
	e.wg.Wait()
	logger.Info("All stages completed.")
	close(readyChan)

	return e.collectFailures(ctx)
}

// validate runs every stage's Validate hook before anything executes, in
// topological order so token errors surface in a stable sequence. The
// returned tokens become part of the cache fingerprints.
func (e *Executor) validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range e.graph.TopologicalOrder() {
		node := e.graph.Nodes[name]
		if node.Desc.Validate == nil {
			continue
		}
		token, err := node.Desc.Validate(ctx, stage.NewValidator(node.Name, node.Params))
		if err != nil {
			return fmt.Errorf("validating stage %q: %w", node.Name, err)
		}
		node.Token = token
		logger.Debug("Validated stage inputs.", "stage", node.Name, "token", token)
	}
	return nil
}

// collectFailures reports the run outcome: nil when every node is done,
// otherwise an error naming the failed stages and wrapping the first root
// cause. Skips and cancellations are symptoms, not causes, and are excluded.
func (e *Executor) collectFailures(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failed []string
	var rootCause error
	for _, name := range e.graph.TopologicalOrder() {
		node := e.graph.Nodes[name]
		if node.State() != dag.Failed {
			continue
		}
		logger.Error("Stage failed.", "stage", node.Name, "action", node.Action, "error", node.Error)
		if node.Action == dag.ActionFailed && !errors.Is(node.Error, context.Canceled) {
			failed = append(failed, node.Name)
			if rootCause == nil {
				rootCause = node.Error
			}
		}
	}

	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	// No stage failed on its own, but the run context may have been
	// canceled from outside (signal, parent timeout).
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}
