// Package engine implements command-in/event-out mutation engines for the
// four record kinds.
//
// Each engine receives typed commands, loads and mutates documents through
// a Repository, and emits past-tense events on a pub/sub bus. Every event
// carries trace metadata: a root span is started per incoming command and
// a child span is recorded per emitted event.
//
// Commands form a sealed sum type: one struct per verb with a typed
// payload, dispatched by exhaustive type switch. A command an engine does
// not understand fails with UnsupportedCommandError instead of being
// silently dropped.
//
// Each engine instance serializes Handle with a mutex, so mutations on one
// engine observe a single logical thread. Cross-process writers are still
// fenced by the repository's optimistic revision check.
package engine
