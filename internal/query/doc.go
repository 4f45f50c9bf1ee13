// Package query defines a small sealed query IR over stored records and
// two backends for it: a SQL compiler targeting the records table and an
// in-memory evaluator over loaded records.
//
// The IR is deliberately narrow. A Select names a record kind, projects
// logical fields, and filters with equality predicates combined by And.
// Both backends produce rows in deterministic id order so results are
// reproducible across runs and across backends.
package query
