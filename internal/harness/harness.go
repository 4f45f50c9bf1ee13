package harness

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/formgraph/internal/cycle"
	"github.com/roach88/formgraph/internal/engine"
	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
	"github.com/roach88/formgraph/internal/testutil"
)

// scenarioEpoch is the fixed instant every scenario starts at.
var scenarioEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Cycle is the completed cycle output.
	Cycle *cycle.Result `json:"-"`

	// Events are the engine events published during the run, in order.
	Events []engine.Event `json:"-"`
}

// AddError records an assertion failure and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario on fresh in-memory repositories.
//
// The run is fully deterministic: records are stamped by a stepping
// clock, trace tokens come from a sequence generator, and events are
// captured in publish order.
func Run(s *Scenario) (*Result, error) {
	clock := testutil.NewClock(scenarioEpoch, time.Second)
	bus := engine.NewMemoryBus()
	recorder := testutil.NewRecorder(bus)
	defer recorder.Close()

	opts := []engine.Option{
		engine.WithBus(bus),
		engine.WithTokens(testutil.NewSeqGenerator(s.Name)),
	}
	engines := cycle.NewEngines(
		repo.NewMemory(ir.KindEntity, repo.WithClock[*ir.Entity](clock.Now)),
		repo.NewMemory(ir.KindProperty, repo.WithClock[*ir.Property](clock.Now)),
		repo.NewMemory(ir.KindContext, repo.WithClock[*ir.Context](clock.Now)),
		repo.NewMemory(ir.KindRelation, repo.WithClock[*ir.Relation](clock.Now)),
		opts...,
	)
	engines.Entities.WithClock(clock.Now)
	engines.Properties.WithClock(clock.Now)
	engines.Contexts.WithClock(clock.Now)
	engines.Relations.WithClock(clock.Now)

	runOpts := []cycle.RunOption{
		cycle.WithActionOptions(cycle.ActionOptions{Threshold: s.Options.Threshold}),
		cycle.WithRunLogger(slog.Default()),
	}
	if s.Options.FixpointMaxIters > 0 {
		runOpts = append(runOpts, cycle.WithFixpointMaxIters(s.Options.FixpointMaxIters))
	}

	cycleResult, err := cycle.Run(context.Background(), &s.Principles, engines.Stages(), runOpts...)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Pass:   true,
		Cycle:  cycleResult,
		Events: recorder.Events(),
	}
	for _, a := range s.Assertions {
		applyAssertion(result, a)
	}
	return result, nil
}
