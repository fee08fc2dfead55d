// Package pbp loads nflfastR play-by-play extracts and prepares them for
// analysis.
//
// A Plays value is an immutable snapshot: filters and transforms return a
// new snapshot and never modify the receiver, so each pipeline stage
// (load, filter, aggregate, cluster, render) hands the next one its own
// value. Missing numeric fields are NaN and are skipped by the aggregations.
package pbp
