// Package stage defines the contract between the pipeline engine and the
// stages it runs.
//
// A stage is a named unit of work with up to three lifecycle functions:
//
//   - Configure declares the stage's dependencies on other stages and the
//     configuration keys it reads, with optional defaults.
//   - Validate inspects external inputs (typically files under data_path)
//     and returns a fingerprint token; a changed token devalidates the
//     stage's cached result and everything downstream.
//   - Execute computes the stage's result from its declared configuration
//     values and the results of its declared dependencies.
//
// Access is strict: a stage can only read configuration keys and dependency
// results that its Configure function declared. Undeclared access returns an
// error, which keeps the declared dependency graph honest and makes cache
// fingerprints complete.
package stage
