// Package cli parses the eqasim command line: flags, the single CONFIG_PATH
// argument, usage output, and process-level concerns like exit codes. It
// translates what the user typed into the application's configuration.
package cli
