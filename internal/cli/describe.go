package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formgraph/internal/engine"
	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	DBPath string
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <kind> <id>",
		Short: "Describe a stored record",
		Long: `Emit the redacted summary of one stored record: core fields, state,
and the key lists of its signature and facet maps. Kind is one of
entity, property, context, or relation.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runDescribe(opts *DescribeOptions, kind, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	db, err := repo.Open(opts.DBPath)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer db.Close()

	events, err := describeRecord(cmd, db, kind, id)
	if err != nil {
		if repo.IsNotFound(err) {
			formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitFailure, "record not found", err)
		}
		formatter.Error(errCodeFor(err), err.Error(), nil)
		return err
	}
	if len(events) == 0 {
		formatter.Error(ErrCodeNotFound, "no description produced", nil)
		return NewExitError(ExitFailure, "no description produced")
	}

	payload := events[0].Payload
	if formatter.Format == "json" {
		return formatter.Success(payload)
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return WrapExitError(ExitFailure, "encoding description", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

// describeRecord dispatches to the engine matching kind. Each engine
// only accepts its own record kind, so the switch is on the CLI arg
// rather than on stored state.
func describeRecord(cmd *cobra.Command, db *repo.DB, kind, id string) ([]engine.Event, error) {
	ctx := cmd.Context()
	describe := &engine.Describe{ID: id}

	switch kind {
	case ir.KindEntity:
		eng := engine.NewEntityEngine(repo.NewSQLite(db, ir.KindEntity, func() *ir.Entity { return &ir.Entity{} }))
		return eng.Handle(ctx, describe)
	case ir.KindProperty:
		eng := engine.NewPropertyEngine(repo.NewSQLite(db, ir.KindProperty, func() *ir.Property { return &ir.Property{} }))
		return eng.Handle(ctx, describe)
	case ir.KindContext:
		eng := engine.NewContextEngine(repo.NewSQLite(db, ir.KindContext, func() *ir.Context { return &ir.Context{} }))
		return eng.Handle(ctx, describe)
	case ir.KindRelation:
		eng := engine.NewRelationEngine(repo.NewSQLite(db, ir.KindRelation, func() *ir.Relation { return &ir.Relation{} }))
		return eng.Handle(ctx, describe)
	default:
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown kind %q: want entity, property, context, or relation", kind))
	}
}
