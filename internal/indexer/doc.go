// Package indexer stores the events of executed transactions.
//
// Each receipt is parsed with a logparse.Parser and written to the store as
// one batch: a transaction row plus one row per decoded event. Event seq
// numbers come from a logical clock resumed from the store, so indexing
// continues monotonically across process restarts.
package indexer
