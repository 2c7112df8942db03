package executor

import (
	"context"
	"fmt"

	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "stage", node.Name)

		if ctx.Err() != nil {
			if node.Skip(ctx.Err(), dag.ActionSkipped, &e.wg) {
				workerLogger.Warn("Context canceled, skipping stage.")
				e.record(ctx, node)
			}
			continue
		}

		workerLogger.Debug("Worker picked up stage.")
		node.SetState(dag.Running)

		if err := e.runNode(ctx, node); err != nil {
			workerLogger.Error("Stage failed.", "error", err)
			node.SetState(dag.Failed)
			node.Error = err
			node.Action = dag.ActionFailed
			e.record(ctx, node)
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Stage finished.", "action", node.Action, "duration", node.Duration)
		node.SetState(dag.Done)
		e.record(ctx, node)

		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent stage.", "dependent", dependent.Name)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream stages as skipped. Each
// node's sync.Once keeps the accounting correct when failure paths overlap.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		err := fmt.Errorf("skipped due to upstream failure of '%s'", node.Name)
		if dependent.Skip(err, dag.ActionSkipped, &e.wg) {
			logger.Warn("Skipping dependent stage due to upstream failure.",
				"stage", dependent.Name, "dependency", node.Name)
			e.record(ctx, dependent)
			e.skipDependents(ctx, dependent)
		}
	}
}

// record appends the node's terminal outcome to the journal. Journal
// trouble must never fail a run, so errors are logged and dropped. Skips
// are recorded after the run context is canceled, hence WithoutCancel.
func (e *Executor) record(ctx context.Context, node *dag.Node) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordStage(context.WithoutCancel(ctx), e.runID, node.Name,
		node.Fingerprint, string(node.Action), node.Duration, node.Error)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Could not journal stage outcome.",
			"stage", node.Name, "error", err)
	}
}
