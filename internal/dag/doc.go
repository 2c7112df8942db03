// Package dag resolves a configuration document against the stage registry
// into a directed acyclic graph of pipeline stages.
//
// Starting from the document's run targets, the configure phase runs
// transitively: every discovered stage contributes one node, its declared
// dependencies become edges, and its declared configuration keys are
// resolved against the document (applying defaults, collecting missing keys).
// The finished graph is cycle-checked and carries a deterministic
// topological order for plan listings and scheduling.
package dag
