package dag

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tellae/eqasim/internal/stage"
)

// State is the execution state of a node, managed atomically.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies.
	Pending State = iota
	// Running indicates a worker is currently processing the node.
	Running
	// Done indicates the node completed, by execution or from cache.
	Done
	// Failed indicates the node failed or was skipped after an upstream
	// failure.
	Failed
)

// Action records how a node reached its terminal state, for logs and the
// run journal.
type Action string

const (
	ActionExecuted Action = "executed"
	ActionCached   Action = "cached"
	ActionFailed   Action = "failed"
	ActionSkipped  Action = "skipped"
)

// Node is a single resolved stage in the execution graph.
type Node struct {
	// Name is the dotted stage name, unique within the graph.
	Name string
	// Desc is the registered stage descriptor.
	Desc *stage.Descriptor
	// Plan holds the stage's declarations from the configure phase.
	Plan *stage.Plan
	// Params maps the stage's declared configuration keys to their
	// resolved values (document value or declared default).
	Params map[string]any
	// IsTarget marks stages listed in the document's run block, as
	// opposed to stages pulled in as dependencies.
	IsTarget bool

	// Deps holds the nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Error stores the failure that terminated this node, if any.
	Error error
	// Result stores the stage result for downstream nodes.
	Result any
	// Token is the validate-phase fingerprint token, empty when the stage
	// has no Validate function.
	Token string
	// Fingerprint is the cache fingerprint, set when the node runs.
	Fingerprint string
	// Action records how the node finished.
	Action Action
	// Duration is the wall time of the execute or cache-load step.
	Duration time.Duration

	// depCount counts unmet dependencies; the scheduler enqueues the node
	// when it reaches zero.
	depCount atomic.Int32
	// state is the node's execution state.
	state atomic.Int32
	// skipOnce ensures a node is marked skipped and accounted exactly once.
	skipOnce sync.Once
}

// State atomically retrieves the node's execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// SetInitialCounters primes the dependency counter from the linked edges.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and
// returns the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// Skip marks the node failed with the given error and action, decrementing
// the WaitGroup. A sync.Once guarantees this happens at most once; the
// return value reports whether this call was the first.
func (n *Node) Skip(err error, action Action, wg *sync.WaitGroup) bool {
	var wasSkipped bool
	n.skipOnce.Do(func() {
		n.SetState(Failed)
		n.Error = err
		n.Action = action
		wg.Done()
		wasSkipped = true
	})
	return wasSkipped
}

// DepNames returns the node's dependency names in sorted order.
func (n *Node) DepNames() []string {
	return sortedKeys(n.Deps)
}
