// Package graph analyses the step graph of a job definition.
//
// It never mutates or gates a definition. Acyclicity and reachability are
// enforced by the orchestrator that loads the job; this package reports the
// same facts ahead of time for dagctl and the HTTP surface.
//
// The graph is an adjacency list keyed by step identifier. Iteration order is
// the job's declaration order so every query is deterministic.
package graph
