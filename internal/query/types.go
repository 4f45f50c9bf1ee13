package query

import "github.com/roach88/formgraph/internal/ir"

// Query is the sealed root of the query IR. Only types in this package
// implement it; the marker method enables exhaustive type switches in
// backends.
type Query interface {
	queryNode()
}

// Predicate is the sealed filter interface.
//
// Predicate types:
//   - Equals: field = literal value
//   - BoundEquals: field = caller-bound variable
//   - And: all predicates must hold
type Predicate interface {
	predicateNode()
}

// Select projects logical fields from one record kind.
//
// Kind names a record kind (entity, property, context, relation).
// Fields names the logical fields to project; each must be valid for
// the kind. Filter is optional; nil selects every record of the kind.
type Select struct {
	Kind   string
	Fields []string
	Filter Predicate
}

func (Select) queryNode() {}

// Equals filters on a logical field equalling a literal value.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// BoundEquals filters on a logical field equalling a caller-supplied
// variable. The variable is resolved from the backend's bound values at
// compile or evaluation time.
type BoundEquals struct {
	Field string
	Var   string
}

func (BoundEquals) predicateNode() {}

// And holds when every sub-predicate holds. An empty slice is always
// true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
