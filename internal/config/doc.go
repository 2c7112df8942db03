// Package config defines the pipeline configuration document: the single
// declarative file that names the output stages to materialize, the working
// directory for cached intermediate results, and the parameter block passed
// to stages.
//
// The document is format-agnostic. Two concrete loaders translate on-disk
// files into the same Document model: YAML (the primary format) and HCL.
// The document is read once at startup, validated as a whole, and never
// mutated afterwards.
package config
