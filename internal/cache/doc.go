// Package cache persists stage results in the working directory so that
// later runs reuse them instead of re-executing.
//
// Each result is stored under cache/<stage>/<fingerprint>. The fingerprint
// is a BLAKE3 digest over the stage name, its resolved configuration
// values, the fingerprints of its dependencies, and its validate token, so
// a change in any parameter, any upstream result, or any validated input
// file devalidates the stage and everything downstream of it.
//
// Payloads are CBOR-encoded and zstd-compressed. A cache entry that cannot
// be read or decoded is treated as a miss, never as an error: the stage
// simply executes again and the entry is rewritten.
package cache
