package engine

import (
	"context"
	"time"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// ContextEngine mutates context records. Membership verbs are idempotent:
// adding a present member or removing an absent one still emits the event
// but skips the repository write, so the revision does not move.
type ContextEngine struct {
	core[*ir.Context]
	now func() time.Time
}

// NewContextEngine creates an engine over the given repository.
func NewContextEngine(r repo.Repository[*ir.Context], opts ...Option) *ContextEngine {
	return &ContextEngine{
		core: newCore(r, ir.KindContext, opts...),
		now:  time.Now,
	}
}

// WithClock overrides the creation time source.
func (e *ContextEngine) WithClock(now func() time.Time) *ContextEngine {
	e.now = now
	return e
}

// Handle processes one command and returns the emitted events.
func (e *ContextEngine) Handle(ctx context.Context, cmd Command) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := StartTrace(e.tokens, e.scope, cmd.commandMeta().Correlation)
	e.log.Debug("handling command", "command", commandName(cmd), "scope", e.scope)

	switch v := cmd.(type) {
	case *CreateContext:
		c, err := ir.NewContext(v.ID, v.Type, e.now())
		if err != nil {
			return nil, err
		}
		c.Core.Name = v.Name

		created, err := e.repo.Create(ctx, c)
		if err != nil {
			return nil, err
		}
		return []Event{e.emit(base, "context.created", ir.Object{
			"id":   ir.String(created.Core.ID),
			"type": ir.String(created.Core.Type),
		})}, nil

	case *AddEntity:
		if err := v.Ref.Validate(); err != nil {
			return nil, err
		}
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.entity.added",
			ir.Object{"entity": refObject(v.Ref)},
			func(c *ir.Context) bool { return c.AddEntity(v.Ref) })

	case *AddEntities:
		for _, ref := range v.Refs {
			if err := ref.Validate(); err != nil {
				return nil, err
			}
		}
		// The payload map is filled inside apply so the count is present
		// when the event publishes; events are never written after emit.
		payload := ir.Object{}
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.entities.added",
			payload,
			func(c *ir.Context) bool {
				added := 0
				for _, ref := range v.Refs {
					if c.AddEntity(ref) {
						added++
					}
				}
				payload["count"] = ir.Int(int64(added))
				return added > 0
			})

	case *RemoveEntity:
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.entity.removed",
			ir.Object{"entity": refObject(v.Ref)},
			func(c *ir.Context) bool { return c.RemoveEntity(v.Ref) })

	case *ClearEntities:
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.entities.cleared",
			ir.Object{},
			func(c *ir.Context) bool {
				if len(c.Entities) == 0 {
					return false
				}
				c.Entities = nil
				return true
			})

	case *AddRelation:
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.relation.added",
			ir.Object{"relation_id": ir.String(v.RelationID)},
			func(c *ir.Context) bool { return c.AddRelation(v.RelationID) })

	case *AddRelations:
		payload := ir.Object{}
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.relations.added",
			payload,
			func(c *ir.Context) bool {
				added := 0
				for _, id := range v.RelationIDs {
					if c.AddRelation(id) {
						added++
					}
				}
				payload["count"] = ir.Int(int64(added))
				return added > 0
			})

	case *RemoveRelation:
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.relation.removed",
			ir.Object{"relation_id": ir.String(v.RelationID)},
			func(c *ir.Context) bool { return c.RemoveRelation(v.RelationID) })

	case *ClearRelations:
		return e.membership(ctx, base, v.ID, v.CommandMeta, "context.relations.cleared",
			ir.Object{},
			func(c *ir.Context) bool {
				if len(c.Relations) == 0 {
					return false
				}
				c.Relations = nil
				return true
			})

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

// membership is the shared path of the idempotent membership verbs: load,
// apply, save only when membership actually changed, emit always. apply
// may add fields to payload; it runs before emit so the published event
// is complete and is never mutated afterwards.
func (e *ContextEngine) membership(ctx context.Context, base Meta, id string, meta CommandMeta, kind string, payload ir.Object, apply func(*ir.Context) bool) ([]Event, error) {
	c, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := apply(c)
	if changed {
		if _, err := e.save(ctx, c, meta); err != nil {
			return nil, err
		}
	}

	payload["id"] = ir.String(id)
	payload["changed"] = ir.Bool(changed)
	return []Event{e.emit(base, kind, payload)}, nil
}

func refObject(ref ir.EntityRef) ir.Object {
	return ir.Object{
		"id":   ir.String(ref.ID),
		"type": ir.String(ref.Type),
	}
}
