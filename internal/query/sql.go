package query

import (
	"fmt"
	"strings"

	"github.com/roach88/formgraph/internal/ir"
)

// Compiler compiles the query IR to parameterized SQL over the records
// table. Field names resolve through the logical field table, so no
// caller-supplied string ever reaches the SQL text; all values travel as
// parameters.
//
// Every compiled query carries ORDER BY id with COLLATE BINARY so result
// order is deterministic across runs and SQLite versions.
type Compiler struct {
	// Bound resolves BoundEquals variables at compile time.
	Bound map[string]ir.Value
}

// NewCompiler creates a Compiler with an empty binding set.
func NewCompiler() *Compiler {
	return &Compiler{Bound: make(map[string]ir.Value)}
}

// Compile converts a query to (sql, params). The query is validated
// first; structural errors fail compilation.
func (c *Compiler) Compile(q Query) (string, []any, error) {
	if _, err := Validate(q); err != nil {
		return "", nil, err
	}

	switch sel := q.(type) {
	case Select:
		return c.compileSelect(sel)
	case *Select:
		return c.compileSelect(*sel)
	default:
		return "", nil, &ir.ValidationError{Field: "query", Message: fmt.Sprintf("unsupported query type %T", q)}
	}
}

func (c *Compiler) compileSelect(sel Select) (string, []any, error) {
	columns, err := c.projection(sel)
	if err != nil {
		return "", nil, err
	}

	params := []any{sel.Kind}
	where := "kind = ?"
	if sel.Filter != nil {
		filterSQL, filterParams, err := c.predicate(sel.Kind, sel.Filter)
		if err != nil {
			return "", nil, err
		}
		where += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	sql := fmt.Sprintf("SELECT %s FROM records WHERE %s ORDER BY id ASC COLLATE BINARY",
		columns, where)
	return sql, params, nil
}

// projection renders the SELECT column list. Each logical field becomes
// either a bare column or a json_extract over the body, aliased to the
// logical name.
func (c *Compiler) projection(sel Select) (string, error) {
	if len(sel.Fields) == 0 {
		return "id", nil
	}
	parts := make([]string, 0, len(sel.Fields))
	for _, name := range sel.Fields {
		f, err := lookupField(sel.Kind, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, columnExpr(f, name))
	}
	return strings.Join(parts, ", "), nil
}

func columnExpr(f field, name string) string {
	if f.column != "" {
		if f.column == name {
			return f.column
		}
		return fmt.Sprintf("%s AS %s", f.column, name)
	}
	return fmt.Sprintf("json_extract(body, '%s') AS %s", f.path, name)
}

func (c *Compiler) predicate(kind string, p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return c.equals(kind, pred)
	case *Equals:
		return c.equals(kind, *pred)
	case BoundEquals:
		return c.boundEquals(kind, pred)
	case *BoundEquals:
		return c.boundEquals(kind, *pred)
	case And:
		return c.and(kind, pred)
	case *And:
		return c.and(kind, *pred)
	default:
		return "", nil, &ir.ValidationError{Field: "filter", Message: fmt.Sprintf("unsupported predicate type %T", p)}
	}
}

func (c *Compiler) equals(kind string, eq Equals) (string, []any, error) {
	f, err := lookupField(kind, eq.Field)
	if err != nil {
		return "", nil, err
	}
	param, err := valueParam(eq.Value)
	if err != nil {
		return "", nil, &ir.ValidationError{Field: eq.Field, Message: err.Error()}
	}
	return fieldExpr(f) + " = ?", []any{param}, nil
}

func (c *Compiler) boundEquals(kind string, beq BoundEquals) (string, []any, error) {
	f, err := lookupField(kind, beq.Field)
	if err != nil {
		return "", nil, err
	}
	val, ok := c.Bound[beq.Var]
	if !ok {
		return "", nil, &ir.ValidationError{Field: beq.Field, Message: "unbound variable " + beq.Var}
	}
	param, err := valueParam(val)
	if err != nil {
		return "", nil, &ir.ValidationError{Field: beq.Field, Message: err.Error()}
	}
	return fieldExpr(f) + " = ?", []any{param}, nil
}

func (c *Compiler) and(kind string, and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	var parts []string
	var params []any
	for _, p := range and.Predicates {
		sql, sub, err := c.predicate(kind, p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, sub...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func fieldExpr(f field) string {
	if f.column != "" {
		return f.column
	}
	return fmt.Sprintf("json_extract(body, '%s')", f.path)
}

// valueParam converts a filter value to a SQL parameter. Arrays and
// objects are not comparable in a WHERE clause.
func valueParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.Bool:
		return bool(val), nil
	case ir.Null, nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("value type %T cannot be a SQL parameter", v)
	}
}
