// Package journal records pipeline runs in a SQLite database kept next
// to the cache in the working directory.
//
// Every run gets a row in the runs table; every stage that reaches a
// terminal state gets a row in stage_actions saying whether it was
// executed, served from cache, failed, or skipped. The journal exists
// for forensics ("which run produced this output, and what did it
// recompute?"), so recording is best-effort: callers log journal errors
// as warnings and keep going rather than failing a multi-hour run over
// bookkeeping.
package journal
