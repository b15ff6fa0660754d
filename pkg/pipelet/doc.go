// Package pipelet implements an incremental dataflow engine: a graph of operators ("pipelets")
// that propagate changes to keyed collections from sources to destinations instead of
// recomputing whole collections.
//
// Every pipelet speaks the same protocol. Deltas are pushed downstream with Add, Remove, Update
// and Clear, and the current state of a pipelet is pulled with Fetch, which delivers the state
// in chunks terminated by exactly one empty chunk. A pipelet connected to a new source with
// SetSource first bootstraps its state by fetching the source and then receives live deltas.
//
// Stateless pipelets (Filter, Map, FlatMap, Passthrough, Observer) keep no data and delegate
// Fetch to their upstream. A Set holds the authoritative ordered collection and resolves which
// held value a remove or update refers to by key. Fork broadcasts deltas to many destinations
// and Union merges many sources into one stream.
//
// Propagation is synchronous and depth-first. Pipelets are not safe for concurrent use: callers
// must serialize access to a connected graph, see the engine package for a runtime that does so.
package pipelet
