package engine

import (
	"context"
	"time"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// EntityEngine mutates entity records.
type EntityEngine struct {
	core[*ir.Entity]
	now func() time.Time
}

// NewEntityEngine creates an engine over the given repository.
func NewEntityEngine(r repo.Repository[*ir.Entity], opts ...Option) *EntityEngine {
	return &EntityEngine{
		core: newCore(r, ir.KindEntity, opts...),
		now:  time.Now,
	}
}

// WithClock overrides the creation time source.
func (e *EntityEngine) WithClock(now func() time.Time) *EntityEngine {
	e.now = now
	return e
}

// Handle processes one command and returns the emitted events.
func (e *EntityEngine) Handle(ctx context.Context, cmd Command) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := StartTrace(e.tokens, e.scope, cmd.commandMeta().Correlation)
	e.log.Debug("handling command", "command", commandName(cmd), "scope", e.scope)

	switch v := cmd.(type) {
	case *CreateEntity:
		ent, err := ir.NewEntity(v.ID, v.Type, e.now())
		if err != nil {
			return nil, err
		}
		ent.Core.Name = v.Name
		ent.Core.Description = v.Description
		ent.Ext = v.Ext.Clone()

		created, err := e.repo.Create(ctx, ent)
		if err != nil {
			return nil, err
		}
		return []Event{e.emit(base, "entity.created", ir.Object{
			"id":   ir.String(created.Core.ID),
			"type": ir.String(created.Core.Type),
			"name": nameValue(created.Core.Name),
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

// nameValue encodes an optional name: empty becomes null.
func nameValue(name string) ir.Value {
	if name == "" {
		return ir.Null{}
	}
	return ir.String(name)
}
