package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/formgraph/internal/cycle"
	"github.com/roach88/formgraph/internal/engine"
	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DBPath    string
	MaxIters  int
	Threshold float64
	Budget    time.Duration
}

// RunSummary is the run command's payload.
type RunSummary struct {
	Entities   int           `json:"entities"`
	Properties int           `json:"properties"`
	Relations  int           `json:"relations"`
	Tasks      int           `json:"tasks"`
	Effects    int           `json:"effects"`
	Iterations int           `json:"iterations"`
	GraphHash  string        `json:"graph_hash"`
	Result     *cycle.Result `json:"result,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <principles-file>",
		Short: "Run one full cycle over a principles document",
		Long: `Seed, contextualize, ground, model, control, and plan from a
principles document, iterating ground through plan until the graph
reaches a fixpoint. State lives in memory unless --db names a SQLite
file, in which case repeated runs are incremental.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database path (default in-memory)")
	cmd.Flags().IntVar(&opts.MaxIters, "iters", cycle.DefaultFixpointMaxIters, "fixpoint iteration cap")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "action stage score threshold")
	cmd.Flags().DurationVar(&opts.Budget, "budget", 0, "wall-clock budget for the cycle (0 for none)")

	return cmd
}

func runCycle(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, warnings, err := LoadPrinciples(path)
	if err != nil {
		formatter.Error(errCodeFor(err), err.Error(), nil)
		return err
	}
	for _, w := range warnings {
		formatter.VerboseLog("warning: %s", w.Message)
	}

	engines, cleanup, err := openEngines(opts.DBPath)
	if err != nil {
		formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer cleanup()

	runOpts := []cycle.RunOption{
		cycle.WithFixpointMaxIters(opts.MaxIters),
		cycle.WithActionOptions(cycle.ActionOptions{Threshold: opts.Threshold}),
	}
	if opts.Budget > 0 {
		runOpts = append(runOpts, cycle.WithBudget(opts.Budget))
	}

	// Use the command's context when present (tests set one), and cancel
	// the cycle on interrupt so SQLite state stays consistent.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting cycle", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := cycle.Run(ctx, p, engines.Stages(), runOpts...)
	if err != nil {
		formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitFailure, "cycle failed", err)
	}

	hash, err := result.Graph.CanonicalHash()
	if err != nil {
		formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitFailure, "hashing graph", err)
	}

	summary := &RunSummary{
		Entities:   len(result.Graph.Entities),
		Properties: len(result.Graph.Properties),
		Relations:  len(result.Graph.Relations),
		Iterations: result.Iterations,
		GraphHash:  hash,
	}
	if result.Work != nil {
		summary.Tasks = len(result.Work.Tasks)
	}
	if result.Action != nil {
		summary.Effects = len(result.Action.Effects)
	}
	if opts.Verbose {
		summary.Result = result
	}

	return formatter.Successf(summary,
		"Cycle complete in %d iteration(s): %d entit(ies), %d propert(ies), %d relation(s), %d task(s)\nGraph hash: %s",
		summary.Iterations, summary.Entities, summary.Properties,
		summary.Relations, summary.Tasks, hash)
}

// openEngines builds the four engines over memory repositories, or over
// a shared SQLite database when path is non-empty. The returned cleanup
// closes the database and is a no-op for memory.
func openEngines(path string) (*cycle.Engines, func(), error) {
	opts := []engine.Option{engine.WithTokens(engine.UUIDv7Generator{})}

	if path == "" {
		engines := cycle.NewEngines(
			repo.NewMemory[*ir.Entity](ir.KindEntity),
			repo.NewMemory[*ir.Property](ir.KindProperty),
			repo.NewMemory[*ir.Context](ir.KindContext),
			repo.NewMemory[*ir.Relation](ir.KindRelation),
			opts...,
		)
		return engines, func() {}, nil
	}

	db, err := repo.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	engines := cycle.NewEngines(
		repo.NewSQLite(db, ir.KindEntity, func() *ir.Entity { return &ir.Entity{} }),
		repo.NewSQLite(db, ir.KindProperty, func() *ir.Property { return &ir.Property{} }),
		repo.NewSQLite(db, ir.KindContext, func() *ir.Context { return &ir.Context{} }),
		repo.NewSQLite(db, ir.KindRelation, func() *ir.Relation { return &ir.Relation{} }),
		opts...,
	)
	return engines, func() { db.Close() }, nil
}
