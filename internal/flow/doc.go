// Package flow is a typed pipe-and-filter dataflow engine.
//
// Filters declare typed inputs (In) and outputs (Pipe) on an embedded Base.
// A Builder validates the wiring of a set of filters once, before any frame
// is processed: connector types must match, every mandatory input has exactly
// one producer, and the topology is acyclic. The resulting Graph runs each
// frame as one synchronous depth-first traversal started by Graph.Push.
//
// Inputs wired with a non-zero group are joined per frame counter: the
// filter's ProceedGroup handler fires exactly once when every member of the
// group has delivered its value for that counter. Incomplete groups older than
// the in-flight window (WithMaxInFlight) are evicted and logged.
//
// Graphs can also be built from data: a Registry maps filter kind
// identifiers to factories and BuildDescription resolves a Description
// against it.
package flow
