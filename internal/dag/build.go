package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/registry"
	"github.com/tellae/eqasim/internal/stage"
)

// Build constructs a complete, validated dependency graph from a
// configuration document. It runs the configure phase transitively from the
// run targets, resolves every stage's configuration against the document,
// links dependency edges, rejects cycles, and computes the deterministic
// topological order.
//
// Resolution problems (unknown stages, missing configuration keys) are
// collected and reported together in one error.
func Build(ctx context.Context, doc *config.Document, reg *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph resolution.", "targets", doc.Run)

	graph := &Graph{Nodes: make(map[string]*Node)}
	var issues []string

	// First pass: discover nodes breadth-first from the run targets. The
	// queue order is deterministic, so issue order is too.
	targets := make(map[string]bool, len(doc.Run))
	queue := make([]string, 0, len(doc.Run))
	for _, name := range doc.Run {
		targets[name] = true
		queue = append(queue, name)
	}

	seen := make(map[string]bool)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		desc, ok := reg.Resolve(name)
		if !ok {
			issues = append(issues, fmt.Sprintf("unknown stage %q", name))
			continue
		}

		configurator := stage.NewConfigurator()
		desc.Configure(configurator)
		plan := configurator.Plan()

		values, missing := plan.Resolve(doc.Params)
		for _, key := range missing {
			issues = append(issues, fmt.Sprintf("stage %q requires config key %q", name, key))
		}

		graph.Nodes[name] = &Node{
			Name:       name,
			Desc:       desc,
			Plan:       plan,
			Params:     values,
			IsTarget:   targets[name],
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		logger.Debug("Build: stage resolved.", "stage", name, "deps", plan.Stages)

		queue = append(queue, plan.Stages...)
	}

	// Second pass: link dependency edges. Edges to unknown stages were
	// already reported above.
	for _, name := range sortedKeys(graph.Nodes) {
		node := graph.Nodes[name]
		for _, depName := range node.Plan.Stages {
			dep, ok := graph.Nodes[depName]
			if !ok {
				continue
			}
			graph.addEdge(dep, node)
		}
	}

	if len(issues) > 0 {
		return nil, fmt.Errorf("cannot resolve pipeline:\n- %s", strings.Join(issues, "\n- "))
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}

	graph.computeOrder()
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	logger.Debug("Build: graph construction successful.", "node_count", len(graph.Nodes))
	return graph, nil
}
