package dag

import (
	"fmt"
	"sort"
)

// Graph is the resolved execution graph: one node per discovered stage.
// Build assembles it; afterwards the node set and edges are immutable, so
// concurrent readers (the executor's workers) need no locking beyond the
// atomics inside each node.
type Graph struct {
	// Nodes stores all nodes keyed by stage name.
	Nodes map[string]*Node

	// order is the deterministic topological order computed by Build.
	order []string
}

// TopologicalOrder returns the stage names in a deterministic dependency
// order: every stage appears after all of its dependencies, ties broken
// alphabetically.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Targets returns the names of nodes that were requested in the document's
// run block, in topological order.
func (g *Graph) Targets() []string {
	var out []string
	for _, name := range g.order {
		if g.Nodes[name].IsTarget {
			out = append(out, name)
		}
	}
	return out
}

// addEdge records that node depends on dep. Both must already exist.
func (g *Graph) addEdge(dep, node *Node) {
	node.Deps[dep.Name] = dep
	dep.Dependents[node.Name] = node
}

// detectCycles checks for circular dependencies using depth-first search
// with visiting/visited sets.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.Name] = true
		for _, dep := range node.Deps {
			if visiting[dep.Name] {
				return fmt.Errorf("cycle detected involving stage '%s'", dep.Name)
			}
			if !visited[dep.Name] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.Name)
		visited[node.Name] = true
		return nil
	}

	for _, name := range sortedKeys(g.Nodes) {
		if !visited[name] {
			if err := visit(g.Nodes[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeOrder fills g.order using Kahn's algorithm with an alphabetically
// sorted ready set, so the order is identical across runs regardless of map
// iteration. Must run after cycle detection.
func (g *Graph) computeOrder() {
	indegree := make(map[string]int, len(g.Nodes))
	for name, node := range g.Nodes {
		indegree[name] = len(node.Deps)
	}

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	g.order = make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		g.order = append(g.order, name)

		var unlocked []string
		for _, dependent := range g.Nodes[name].Dependents {
			indegree[dependent.Name]--
			if indegree[dependent.Name] == 0 {
				unlocked = append(unlocked, dependent.Name)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
		sort.Strings(ready)
	}
}

// sortedKeys returns the map's keys in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
