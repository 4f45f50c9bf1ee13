// Package repo provides durable storage for versioned documents.
//
// Two backends implement the same generic Repository contract: an
// in-memory map for tests and ephemeral runs, and SQLite with WAL mode
// for durable single-writer deployments. Both enforce the same
// concurrency discipline: every accepted mutation bumps the envelope
// revision by exactly one, and writes carrying an expected revision fail
// with ConcurrencyConflictError when the stored revision differs.
//
// Repositories never hand out aliased records. Every read returns a deep
// copy and every write stores a deep copy, so callers can mutate what
// they hold without racing the store.
package repo
