package query

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/roach88/formgraph/internal/ir"
)

// Row is one projected result row: logical field name to value.
type Row = ir.Object

// Evaluate runs a query against loaded records without touching storage.
// Records of other kinds are skipped, so a mixed slice is fine. Rows come
// back sorted by record id, matching the SQL backend's order.
//
// bound resolves BoundEquals variables; nil means no bindings.
func Evaluate(q Query, records []ir.Record, bound map[string]ir.Value) ([]Row, error) {
	if _, err := Validate(q); err != nil {
		return nil, err
	}

	var sel Select
	switch v := q.(type) {
	case Select:
		sel = v
	case *Select:
		sel = *v
	default:
		return nil, &ir.ValidationError{Field: "query", Message: fmt.Sprintf("unsupported query type %T", q)}
	}

	matched := make([]ir.Record, 0, len(records))
	for _, rec := range records {
		if rec.RecordKind() != sel.Kind {
			continue
		}
		ok, err := evalPredicate(sel.Kind, sel.Filter, rec, bound)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Envelope().Core.ID < matched[j].Envelope().Core.ID
	})

	rows := make([]Row, 0, len(matched))
	for _, rec := range matched {
		row := make(Row, len(sel.Fields))
		if len(sel.Fields) == 0 {
			row["id"] = ir.String(rec.Envelope().Core.ID)
		}
		for _, name := range sel.Fields {
			f, err := lookupField(sel.Kind, name)
			if err != nil {
				return nil, err
			}
			row[name] = f.get(rec)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func evalPredicate(kind string, p Predicate, rec ir.Record, bound map[string]ir.Value) (bool, error) {
	if p == nil {
		return true, nil
	}
	switch pred := p.(type) {
	case Equals:
		return evalEquals(kind, pred.Field, pred.Value, rec)
	case *Equals:
		return evalEquals(kind, pred.Field, pred.Value, rec)
	case BoundEquals:
		return evalBound(kind, pred, rec, bound)
	case *BoundEquals:
		return evalBound(kind, *pred, rec, bound)
	case And:
		return evalAnd(kind, pred, rec, bound)
	case *And:
		return evalAnd(kind, *pred, rec, bound)
	default:
		return false, &ir.ValidationError{Field: "filter", Message: fmt.Sprintf("unsupported predicate type %T", p)}
	}
}

func evalEquals(kind, name string, want ir.Value, rec ir.Record) (bool, error) {
	f, err := lookupField(kind, name)
	if err != nil {
		return false, err
	}
	// Null never equals anything, matching SQL comparison semantics.
	if want == nil {
		return false, nil
	}
	if _, isNull := want.(ir.Null); isNull {
		return false, nil
	}
	return valueEqual(f.get(rec), want)
}

func evalBound(kind string, beq BoundEquals, rec ir.Record, bound map[string]ir.Value) (bool, error) {
	val, ok := bound[beq.Var]
	if !ok {
		return false, &ir.ValidationError{Field: beq.Field, Message: "unbound variable " + beq.Var}
	}
	return evalEquals(kind, beq.Field, val, rec)
}

func evalAnd(kind string, and And, rec ir.Record, bound map[string]ir.Value) (bool, error) {
	for _, p := range and.Predicates {
		ok, err := evalPredicate(kind, p, rec, bound)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// valueEqual compares two values through their canonical encoding, so
// 2 and 2.0 compare equal the same way they hash equal.
func valueEqual(a, b ir.Value) (bool, error) {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false, err
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}
