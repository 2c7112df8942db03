package executor

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/tellae/eqasim/internal/cache"
	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/dag"
	"github.com/tellae/eqasim/internal/stage"
)

// runNode takes one ready node to a terminal result: fingerprint, cache
// probe, execution, cache write-back. Dependency results are guaranteed
// present because the scheduler only releases a node once every
// dependency is done.
func (e *Executor) runNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("stage", node.Name)

	depFingerprints := make(map[string]string, len(node.Deps))
	depResults := make(map[string]any, len(node.Deps))
	for name, dep := range node.Deps {
		depFingerprints[name] = dep.Fingerprint
		depResults[name] = dep.Result
	}

	fingerprint, err := cache.Fingerprint(cache.FingerprintInput{
		Stage:  node.Name,
		Params: node.Params,
		Deps:   depFingerprints,
		Token:  node.Token,
	})
	if err != nil {
		return err
	}
	node.Fingerprint = fingerprint

	start := time.Now()

	cacheable := node.Desc.NewResult != nil
	if cacheable && !e.force {
		if result, hit := e.store.Read(ctx, node.Name, fingerprint, node.Desc.NewResult); hit {
			node.Result = result
			node.Action = dag.ActionCached
			node.Duration = time.Since(start)
			logger.Info("Reused cached stage result.", "fingerprint", fingerprint)
			return nil
		}
	}

	logger.Info("Executing stage.", "fingerprint", fingerprint)
	rt := stage.NewRuntime(node.Name, node.Params, depResults, rngSeed(node), e.workers)
	result, err := node.Desc.Execute(ctx, rt)
	if err != nil {
		return err
	}
	node.Result = result
	node.Action = dag.ActionExecuted
	node.Duration = time.Since(start)

	if cacheable {
		if err := e.store.Write(ctx, node.Name, fingerprint, result); err != nil {
			return err
		}
	}

	logger.Info("Stage executed.", "duration", node.Duration.Round(time.Millisecond))
	return nil
}

// rngSeed derives the stage's deterministic random seed: the document's
// random_seed (when the stage declares it) mixed with a hash of the stage
// name, so sibling stages never share a random stream.
func rngSeed(node *dag.Node) int64 {
	var base int64
	if v, ok := node.Params[config.KeyRandomSeed]; ok {
		if n, ok := config.AsInt(v); ok {
			base = int64(n)
		}
	}
	h := fnv.New64a()
	h.Write([]byte(node.Name))
	return base ^ int64(h.Sum64())
}
