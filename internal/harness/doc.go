// Package harness runs declarative conformance scenarios against the
// cycle pipeline.
//
// A scenario is a YAML file carrying a principles document, run options,
// and assertions over the resulting graph, plan, and event stream. The
// harness executes the builtin stages over in-memory repositories with a
// deterministic clock and token sequence, so the same scenario always
// produces the same records, events, and snapshot bytes.
//
// Golden snapshots capture the structural outcome of a run in canonical
// JSON. Regenerate them with:
//
//	go test ./internal/harness -update
package harness
