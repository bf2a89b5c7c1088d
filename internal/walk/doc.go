// Package walk implements the directory traversal engines.
//
// Collect builds a tree of the entries below a directory, stat'ing and
// descending into siblings concurrently. Start runs the streaming engine:
// every discovered directory is re-submitted to a work queue instead of
// being recursed into, and completion is detected by counting in-flight
// jobs. Fast drives fastwalk and reports through the same Event type.
//
// All engines are best effort: list and stat failures are reported per
// path and never abort the traversal of unrelated paths.
package walk
