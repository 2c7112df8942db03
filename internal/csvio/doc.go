// Package csvio reads and writes the semicolon-separated CSV files the
// pipeline exchanges with the outside world: INSEE-style inputs under
// data_path and the synthesized outputs under output_path.
//
// Columns are addressed by header name, never by position, and parse
// errors carry file and line context so a broken input names its own
// location.
package csvio
