package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/query"
	"github.com/roach88/formgraph/internal/repo"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	DBPath string
	Fields []string
	Where  []string
	SQL    bool
}

// QueryResult is the query command's payload.
type QueryResult struct {
	Kind string      `json:"kind"`
	Rows []query.Row `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <kind>",
		Short: "Query stored records",
		Long: `Run a filtered projection over stored records of one kind. Filters
are repeated --where field=value pairs, combined conjunctively; values
compare as strings. Use --sql to print the compiled statement instead
of executing it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required unless --sql)")
	cmd.Flags().StringSliceVar(&opts.Fields, "field", nil, "field to project (repeatable, default id)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter as field=value (repeatable)")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "print the compiled SQL and exit")

	return cmd
}

func runQuery(opts *QueryOptions, kind string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	q, err := buildQuery(kind, opts.Fields, opts.Where)
	if err != nil {
		formatter.Error(ErrCodeValidation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "building query", err)
	}

	sqlText, params, err := query.NewCompiler().Compile(q)
	if err != nil {
		formatter.Error(ErrCodeValidation, err.Error(), nil)
		return WrapExitError(ExitFailure, "compiling query", err)
	}

	if opts.SQL {
		return formatter.Successf(map[string]any{"sql": sqlText, "params": params},
			"%s\nparams: %v", sqlText, params)
	}
	if opts.DBPath == "" {
		err := NewExitError(ExitCommandError, "--db is required to execute a query")
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}

	db, err := repo.Open(opts.DBPath)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer db.Close()

	rows, err := executeQuery(cmd, db, q, sqlText, params)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "executing query", err)
	}

	result := &QueryResult{Kind: kind, Rows: rows}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, row := range rows {
		data, err := ir.MarshalCanonical(ir.Object(row))
		if err != nil {
			return WrapExitError(ExitFailure, "encoding row", err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	formatter.VerboseLog("%d row(s)", len(rows))
	return nil
}

// buildQuery assembles the query IR from CLI inputs. Field and kind
// names are checked by the query validator during compilation, so this
// only handles the flag syntax.
func buildQuery(kind string, fields, where []string) (query.Query, error) {
	sel := query.Select{Kind: kind, Fields: fields}

	preds := make([]query.Predicate, 0, len(where))
	for _, w := range where {
		field, value, ok := strings.Cut(w, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("malformed --where %q: want field=value", w)
		}
		preds = append(preds, query.Equals{Field: field, Value: ir.String(value)})
	}
	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = query.And{Predicates: preds}
	}
	return sel, nil
}

// executeQuery runs the compiled statement and scans each row back into
// the logical projection. Scanned values arrive with SQLite's dynamic
// types, so they round-trip through FromGo into IR values.
func executeQuery(cmd *cobra.Command, db *repo.DB, q query.Query, sqlText string, params []any) ([]query.Row, error) {
	sel, ok := q.(query.Select)
	if !ok {
		return nil, fmt.Errorf("unsupported query type %T", q)
	}
	columns := sel.Fields
	if len(columns) == 0 {
		columns = []string{"id"}
	}

	sqlRows, err := db.SQL().QueryContext(cmd.Context(), sqlText, params...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	out := []query.Row{}
	for sqlRows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(query.Row, len(columns))
		for i, name := range columns {
			v, err := ir.FromGo(normalizeScan(dest[i]))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	return out, sqlRows.Err()
}

// normalizeScan converts driver-level scan types to plain Go values.
func normalizeScan(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
