package engine

import (
	"context"
	"time"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// RelationEngine mutates relation records.
type RelationEngine struct {
	core[*ir.Relation]
	now func() time.Time
}

// NewRelationEngine creates an engine over the given repository.
func NewRelationEngine(r repo.Repository[*ir.Relation], opts ...Option) *RelationEngine {
	return &RelationEngine{
		core: newCore(r, ir.KindRelation, opts...),
		now:  time.Now,
	}
}

// WithClock overrides the creation time source.
func (e *RelationEngine) WithClock(now func() time.Time) *RelationEngine {
	e.now = now
	return e
}

// Handle processes one command and returns the emitted events.
func (e *RelationEngine) Handle(ctx context.Context, cmd Command) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := StartTrace(e.tokens, e.scope, cmd.commandMeta().Correlation)
	e.log.Debug("handling command", "command", commandName(cmd), "scope", e.scope)

	switch v := cmd.(type) {
	case *CreateRelation:
		rel, err := ir.NewRelation(v.ID, v.Type, v.Source, v.Target, v.Kind, e.now())
		if err != nil {
			return nil, err
		}
		if v.Direction != "" {
			if v.Direction != ir.Directed && v.Direction != ir.Bidirectional {
				return nil, &ir.ValidationError{Field: "direction", Message: "must be directed or bidirectional"}
			}
			rel.Direction = v.Direction
		}
		if v.Strength != nil {
			s := *v.Strength
			rel.Strength = &s
		}

		created, err := e.repo.Create(ctx, rel)
		if err != nil {
			return nil, err
		}
		return []Event{e.emit(base, "relation.created", ir.Object{
			"id":     ir.String(created.Core.ID),
			"kind":   ir.String(created.Kind),
			"source": refObject(created.Source),
			"target": refObject(created.Target),
		})}, nil

	case *InvertRelation:
		rel, err := e.repo.Get(ctx, v.ID)
		if err != nil {
			return nil, err
		}

		ok := rel.Invert()
		if ok {
			if _, err := e.save(ctx, rel, v.CommandMeta); err != nil {
				return nil, err
			}
		}
		return []Event{e.emit(base, "relation.inverted", ir.Object{
			"id":     ir.String(v.ID),
			"ok":     ir.Bool(ok),
			"source": refObject(rel.Source),
			"target": refObject(rel.Target),
		})}, nil

	default:
		events, handled, err := e.handleEnvelope(ctx, base, cmd)
		if err != nil {
			return nil, err
		}
		if handled {
			return events, nil
		}
		return nil, e.unsupported(cmd)
	}
}
