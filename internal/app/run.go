package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tellae/eqasim/internal/cache"
	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/dag"
	"github.com/tellae/eqasim/internal/executor"
	"github.com/tellae/eqasim/internal/fsutil"
	"github.com/tellae/eqasim/internal/journal"
)

// historyLimit caps the --history listing.
const historyLimit = 20

// Run executes the pipeline described by the loaded document: it builds
// the stage graph, opens the working directory's cache and journal, and
// hands the graph to the executor. The --list and --history modes print
// and return without executing anything.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.cfg.HealthcheckPort)
	}

	if a.cfg.History {
		return a.printHistory(ctx)
	}

	graph, err := dag.Build(ctx, a.document, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build stage graph: %w", err)
	}
	a.logger.Debug("Stage graph built.", "node_count", len(graph.Nodes))

	if a.cfg.List {
		return a.printPlan(graph)
	}

	if err := fsutil.EnsureDir(a.document.WorkingDirectory); err != nil {
		return fmt.Errorf("preparing working directory: %w", err)
	}
	store, err := cache.Open(filepath.Join(a.document.WorkingDirectory, "cache"))
	if err != nil {
		return fmt.Errorf("opening stage cache: %w", err)
	}

	// The journal is observational: a broken journal degrades the run, it
	// never fails it.
	jnl, err := journal.Open(filepath.Join(a.document.WorkingDirectory, "journal.db"))
	if err != nil {
		a.logger.Warn("Run journal unavailable, continuing without it.", "error", err)
		jnl = nil
	}

	runID := uuid.NewString()
	workers := a.workerCount()
	if jnl != nil {
		if err := jnl.StartRun(ctx, runID, a.document.Path); err != nil {
			a.logger.Warn("Could not journal the run start.", "error", err)
		}
	}

	a.logger.Info("🚀 Starting pipeline run.",
		"run_id", runID,
		"config", a.document.Path,
		"targets", a.document.Run,
		"workers", workers,
		"force", a.cfg.Force)

	exec := executor.New(graph, executor.Options{
		Workers: workers,
		Force:   a.cfg.Force,
		RunID:   runID,
		Store:   store,
		Journal: jnl,
	})
	runErr := exec.Run(ctx)

	if jnl != nil {
		finishCtx := context.WithoutCancel(ctx)
		if err := jnl.FinishRun(finishCtx, runID, runErr == nil); err != nil {
			a.logger.Warn("Could not journal the run end.", "error", err)
		}
		if err := jnl.Close(); err != nil {
			a.logger.Warn("Could not close the run journal.", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline run failed: %w", runErr)
	}
	a.logger.Info("🏁 Pipeline finished.", "run_id", runID, "stages", len(graph.Nodes))
	return nil
}

// workerCount resolves the executor pool size: the --workers flag wins,
// then the document's processes parameter, then the machine's CPU count.
func (a *App) workerCount() int {
	if a.cfg.Workers > 0 {
		return a.cfg.Workers
	}
	if v, ok := a.document.Param(config.KeyProcesses); ok {
		if n, ok := config.AsInt(v); ok && n >= 1 {
			return n
		}
	}
	return runtime.NumCPU()
}

// printPlan writes the resolved execution order without running anything.
func (a *App) printPlan(graph *dag.Graph) error {
	fmt.Fprintf(a.outW, "Execution plan for %s:\n", a.document.Path)
	for i, name := range graph.TopologicalOrder() {
		node := graph.Nodes[name]
		line := fmt.Sprintf("%3d. %s", i+1, node.Name)
		if deps := node.DepNames(); len(deps) > 0 {
			line += fmt.Sprintf("  (after %s)", strings.Join(deps, ", "))
		}
		if node.IsTarget {
			line += "  *"
		}
		fmt.Fprintln(a.outW, line)
	}
	fmt.Fprintln(a.outW, "\n* requested by the run list")
	return nil
}

// printHistory lists the most recent journal entries.
func (a *App) printHistory(ctx context.Context) error {
	jnl, err := journal.Open(filepath.Join(a.document.WorkingDirectory, "journal.db"))
	if err != nil {
		return fmt.Errorf("opening run journal: %w", err)
	}
	defer jnl.Close()

	runs, err := jnl.History(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("reading run journal: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.outW, "No recorded runs.")
		return nil
	}

	for _, run := range runs {
		elapsed := "running"
		if !run.FinishedAt.IsZero() {
			elapsed = run.FinishedAt.Sub(run.StartedAt).Round(10 * time.Millisecond).String()
		}
		fmt.Fprintf(a.outW, "%s  %-9s  %s  %8s  executed=%d cached=%d failed=%d skipped=%d  %s\n",
			shortRunID(run.ID),
			run.Status,
			run.StartedAt.Format(time.RFC3339),
			elapsed,
			run.Executed, run.Cached, run.Failed, run.Skipped,
			run.ConfigPath)
	}
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
