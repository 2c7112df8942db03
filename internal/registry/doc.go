// Package registry provides the central lookup for pipeline stages.
//
// The Registry maps dotted stage names (e.g. "synthesis.population.income")
// to the compiled Go descriptors that implement them. Stage packages
// register themselves during application startup; the registry is then
// validated against the configuration document so that every requested
// output target names a stage that actually exists, preventing a class of
// runtime errors before anything executes.
package registry
