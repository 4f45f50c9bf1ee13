package cycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/formgraph/internal/facet"
	"github.com/roach88/formgraph/internal/ir"
)

// DefaultFixpointMaxIters bounds the Ground through Plan re-run loop.
const DefaultFixpointMaxIters = 16

// RunOption configures one cycle run.
type RunOption func(*runConfig)

type runConfig struct {
	fixpointMaxIters int
	budget           time.Duration
	action           ActionOptions
	log              *slog.Logger
	now              func() time.Time
}

// WithFixpointMaxIters bounds the fixpoint loop. 1 disables iteration:
// one pass through Ground, Model, Control, Plan.
func WithFixpointMaxIters(n int) RunOption {
	return func(c *runConfig) { c.fixpointMaxIters = n }
}

// WithBudget caps the wall-clock time of the fixpoint loop. Zero means
// no time budget.
func WithBudget(d time.Duration) RunOption {
	return func(c *runConfig) { c.budget = d }
}

// WithActionOptions configures the optional Action stage.
func WithActionOptions(opts ActionOptions) RunOption {
	return func(c *runConfig) { c.action = opts }
}

// WithRunLogger sets the structured logger.
func WithRunLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.log = l }
}

// WithRunClock overrides the time source for budget accounting.
func WithRunClock(now func() time.Time) RunOption {
	return func(c *runConfig) { c.now = now }
}

// Run executes one cycle.
//
// Required-stage errors propagate and abort the run: no partial graph is
// returned. The optional Reflect and Action stages fail open: errors and
// panics there are logged and the corresponding Result field stays nil.
func Run(ctx context.Context, p *Principles, stages Stages, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		fixpointMaxIters: DefaultFixpointMaxIters,
		log:              slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.fixpointMaxIters < 1 {
		cfg.fixpointMaxIters = 1
	}
	if err := requireStages(stages); err != nil {
		return nil, err
	}

	start := cfg.now()

	entities, err := stages.Seed(ctx, p)
	if err != nil {
		return nil, err
	}
	cfg.log.Debug("seed complete", "entities", len(entities))

	properties, err := stages.Contextualize(ctx, p, entities)
	if err != nil {
		return nil, err
	}
	cfg.log.Debug("contextualize complete", "properties", len(properties))

	var reflectResult *facet.Result
	if stages.Reflect != nil {
		reflectResult = runOptional(cfg.log, "reflect", func() (*facet.Result, error) {
			return stages.Reflect(ctx, entities, properties)
		})
	}

	result := &Result{}
	graph := Graph{Entities: entities, Properties: properties}
	prevHash := ""

	for iter := 1; iter <= cfg.fixpointMaxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		derived, err := stages.Ground(ctx, p, &graph)
		if err != nil {
			return nil, err
		}
		graph.Relations = mergeRelations(graph.Relations, derived)

		proj, err := stages.Model(ctx, &graph)
		if err != nil {
			return nil, err
		}

		controls, err := stages.Control(ctx, &graph, proj)
		if err != nil {
			return nil, err
		}

		work, err := stages.Plan(ctx, controls)
		if err != nil {
			return nil, err
		}

		result.Projections = proj
		result.Controls = controls
		result.Work = work
		result.Iterations = iter

		hash, err := graph.CanonicalHash()
		if err != nil {
			return nil, err
		}
		if hash == prevHash {
			cfg.log.Debug("fixpoint reached", "iterations", iter)
			break
		}
		prevHash = hash

		if cfg.budget > 0 && cfg.now().Sub(start) >= cfg.budget {
			cfg.log.Warn("cycle budget exhausted", "iterations", iter, "budget", cfg.budget)
			break
		}
	}

	result.Graph = graph
	result.Reflect = reflectResult

	if stages.Action != nil {
		result.Action = runOptional(cfg.log, "action", func() (*ActionResult, error) {
			return stages.Action(ctx, &graph, reflectResult, cfg.action)
		})
	}

	return result, nil
}

func requireStages(stages Stages) error {
	missing := ""
	switch {
	case stages.Seed == nil:
		missing = "seed"
	case stages.Contextualize == nil:
		missing = "contextualize"
	case stages.Ground == nil:
		missing = "ground"
	case stages.Model == nil:
		missing = "model"
	case stages.Control == nil:
		missing = "control"
	case stages.Plan == nil:
		missing = "plan"
	}
	if missing != "" {
		return &ir.ValidationError{Field: missing, Message: "required stage function is nil"}
	}
	return nil
}

// runOptional isolates an optional stage: errors and panics are logged
// and yield a nil result instead of aborting the cycle.
func runOptional[T any](log *slog.Logger, stage string, fn func() (*T, error)) (out *T) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("optional stage panicked", "stage", stage, "panic", r)
			out = nil
		}
	}()

	v, err := fn()
	if err != nil {
		log.Error("optional stage failed", "stage", stage, "error", err)
		return nil
	}
	return v
}

// mergeRelations adds derived relations that are not yet present,
// deduplicating by id. Existing relations are never replaced.
func mergeRelations(existing, derived []*ir.Relation) []*ir.Relation {
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Core.ID] = true
	}
	out := existing
	for _, r := range derived {
		if seen[r.Core.ID] {
			continue
		}
		seen[r.Core.ID] = true
		out = append(out, r)
	}
	return out
}
