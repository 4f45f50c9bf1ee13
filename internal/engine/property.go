package engine

import (
	"context"
	"time"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// PropertyEngine mutates property records. Beyond the envelope verbs it
// owns the binding verbs: a property belongs to exactly one of an entity
// or a relation, and setting one binding clears the other.
type PropertyEngine struct {
	core[*ir.Property]
	now func() time.Time
}

// NewPropertyEngine creates an engine over the given repository.
func NewPropertyEngine(r repo.Repository[*ir.Property], opts ...Option) *PropertyEngine {
	return &PropertyEngine{
		core: newCore(r, ir.KindProperty, opts...),
		now:  time.Now,
	}
}

// WithClock overrides the creation time source.
func (e *PropertyEngine) WithClock(now func() time.Time) *PropertyEngine {
	e.now = now
	return e
}

// Handle processes one command and returns the emitted events.
func (e *PropertyEngine) Handle(ctx context.Context, cmd Command) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := StartTrace(e.tokens, e.scope, cmd.commandMeta().Correlation)
	e.log.Debug("handling command", "command", commandName(cmd), "scope", e.scope)

	switch v := cmd.(type) {
	case *CreateProperty:
		prop, err := ir.NewProperty(v.ID, v.Type, v.ContextID, e.now())
		if err != nil {
			return nil, err
		}
		prop.Key = v.Key

		created, err := e.repo.Create(ctx, prop)
		if err != nil {
			return nil, err
		}
		return []Event{e.emit(base, "property.created", ir.Object{
			"id":         ir.String(created.Core.ID),
			"type":       ir.String(created.Core.Type),
			"context_id": ir.String(created.ContextID),
		})}, nil

	case *BindEntity:
		events, _, err := e.mutate(ctx, base, v.ID, v.CommandMeta, "property.entityBound", func(p *ir.Property) error {
			return p.BindEntity(v.Ref)
		})
		return events, err

	case *BindRelation:
		events, _, err := e.mutate(ctx, base, v.ID, v.CommandMeta, "property.relationBound", func(p *ir.Property) error {
			return p.BindRelation(v.RelationID)
		})
		return events, err

	case *ClearBinding:
		events, _, err := e.mutate(ctx, base, v.ID, v.CommandMeta, "property.bindingCleared", func(p *ir.Property) error {
			p.ClearBinding()
			return nil
		})
		return events, err

	case *SetValue:
		events, _, err := e.mutate(ctx, base, v.ID, v.CommandMeta, "property.valueSet", func(p *ir.Property) error {
			return p.SetValue(v.Value, v.ValueType)
		})
		return events, err

	case *ClearValue:
		events, _, err := e.mutate(ctx, base, v.ID, v.CommandMeta, "property.valueCleared", func(p *ir.Property) error {
			p.ClearValue()
			return nil
		})
		return events, err

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
