// Package cycle orchestrates the graph assembly pipeline.
//
// A cycle runs a strict stage order over a set of principles:
//
//	Seed -> Contextualize -> [Reflect] -> Ground -> Model -> Control -> Plan -> [Action]
//
// Required stages abort the cycle on error; no partial graph is returned.
// The bracketed stages are optional and fail open: an error or panic there
// is logged and surfaces as absent output, never as a failed cycle.
//
// When the fixpoint iteration budget allows more than one pass, the
// Ground through Plan stages re-run until the graph's canonical hash
// stops moving, the iteration budget is spent, or the time budget
// elapses. Every configuration terminates.
package cycle
