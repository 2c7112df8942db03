// Package executor runs a resolved stage graph on a bounded worker pool.
//
// A run has two phases. First every stage's Validate hook runs, so a
// missing input file aborts the run before hours of upstream work. Then
// workers pull ready nodes from a channel: a node is ready when all of
// its dependencies are done, tracked with an atomic counter per node.
// Each node is fingerprinted, served from the working-directory cache
// when possible, executed otherwise, and its outcome appended to the run
// journal.
//
// The first failure cancels the run context and transitively skips every
// dependent of the failed node; in-flight stages of unrelated branches
// drain normally so their cache entries are not wasted.
package executor
