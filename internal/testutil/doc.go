// Package testutil provides shared helpers for package-level tests:
// logger-carrying contexts, a thread-safe log buffer, and a miniature
// on-disk input dataset covering every pipeline stage.
package testutil
