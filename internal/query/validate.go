package query

import (
	"fmt"

	"github.com/roach88/formgraph/internal/ir"
)

// Result is the outcome of validating a query. A query with warnings
// still executes; warnings flag constructs both backends handle but that
// callers usually did not mean.
type Result struct {
	Warnings []string
}

// Validate checks a query for structural errors: unknown kinds, unknown
// fields, and unsupported node types. Errors make the query unexecutable
// on both backends. Warnings cover legal but suspicious constructs, such
// as comparing a field to null.
//
// Validate is pure and does not touch storage.
func Validate(q Query) (Result, error) {
	v := &validator{}
	if err := v.query(q); err != nil {
		return Result{}, err
	}
	return Result{Warnings: v.warnings}, nil
}

type validator struct {
	warnings []string
}

func (v *validator) warn(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) query(q Query) error {
	if q == nil {
		return &ir.ValidationError{Field: "query", Message: "must not be nil"}
	}
	switch sel := q.(type) {
	case Select:
		return v.sel(sel)
	case *Select:
		return v.sel(*sel)
	default:
		return &ir.ValidationError{Field: "query", Message: fmt.Sprintf("unsupported query type %T", q)}
	}
}

func (v *validator) sel(sel Select) error {
	if len(sel.Fields) == 0 {
		v.warn("select on %s projects no fields", sel.Kind)
	}
	for _, name := range sel.Fields {
		if _, err := lookupField(sel.Kind, name); err != nil {
			return err
		}
	}
	return v.predicate(sel.Kind, sel.Filter)
}

func (v *validator) predicate(kind string, p Predicate) error {
	if p == nil {
		return nil
	}
	switch pred := p.(type) {
	case Equals:
		return v.equals(kind, pred)
	case *Equals:
		return v.equals(kind, *pred)
	case BoundEquals:
		return v.boundEquals(kind, pred)
	case *BoundEquals:
		return v.boundEquals(kind, *pred)
	case And:
		return v.and(kind, pred)
	case *And:
		return v.and(kind, *pred)
	default:
		return &ir.ValidationError{Field: "filter", Message: fmt.Sprintf("unsupported predicate type %T", p)}
	}
}

func (v *validator) equals(kind string, eq Equals) error {
	if _, err := lookupField(kind, eq.Field); err != nil {
		return err
	}
	if _, isNull := eq.Value.(ir.Null); isNull || eq.Value == nil {
		v.warn("field %q compared to null never matches", eq.Field)
	}
	return nil
}

func (v *validator) boundEquals(kind string, beq BoundEquals) error {
	if _, err := lookupField(kind, beq.Field); err != nil {
		return err
	}
	if beq.Var == "" {
		return &ir.ValidationError{Field: beq.Field, Message: "bound variable name must not be empty"}
	}
	return nil
}

func (v *validator) and(kind string, and And) error {
	for _, p := range and.Predicates {
		if err := v.predicate(kind, p); err != nil {
			return err
		}
	}
	return nil
}
