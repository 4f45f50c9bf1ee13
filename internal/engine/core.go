package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// Option configures an engine.
type Option func(*options)

type options struct {
	bus    Bus
	tokens TokenGenerator
	log    *slog.Logger
}

// WithBus sets the event bus. Default: a fresh MemoryBus.
func WithBus(b Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithTokens sets the trace token generator. Default: UUIDv7Generator.
// Tests use NewFixedGenerator for deterministic traces.
func WithTokens(g TokenGenerator) Option {
	return func(o *options) { o.tokens = g }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts ...Option) options {
	o := options{
		bus:    NewMemoryBus(),
		tokens: UUIDv7Generator{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// core is the shared machinery of the four engines: the repository, the
// bus, tracing, and the handlers for the envelope verbs that apply
// uniformly to every record kind.
type core[T ir.Record] struct {
	repo   repo.Repository[T]
	bus    Bus
	tokens TokenGenerator
	log    *slog.Logger
	scope  string
	mu     sync.Mutex
}

func newCore[T ir.Record](r repo.Repository[T], scope string, opts ...Option) core[T] {
	o := newOptions(opts...)
	return core[T]{
		repo:   r,
		bus:    o.bus,
		tokens: o.tokens,
		log:    o.log,
		scope:  scope,
	}
}

// Bus returns the event bus this engine publishes on.
func (c *core[T]) Bus() Bus { return c.bus }

// emit publishes one event as a child span of the command's root span.
func (c *core[T]) emit(base Meta, kind string, payload ir.Object) Event {
	meta := ChildSpan(base, c.tokens, kind)
	evt := Event{Kind: kind, Payload: payload, Meta: meta}
	c.bus.Publish(evt)
	c.log.Debug("event emitted",
		"kind", kind,
		"scope", c.scope,
		"trace_id", meta.TraceID)
	return evt
}

// save persists a mutated record. A caller-supplied expected revision
// takes precedence; otherwise the write is fenced on the revision the
// record was loaded at.
func (c *core[T]) save(ctx context.Context, rec T, meta CommandMeta) (T, error) {
	cc := repo.Expect(rec.Envelope().Revision)
	if meta.ExpectedRevision != nil {
		cc = repo.Expect(*meta.ExpectedRevision)
	}
	return c.repo.Save(ctx, rec, cc)
}

// unsupported builds the dispatch-default error.
func (c *core[T]) unsupported(cmd Command) error {
	return &UnsupportedCommandError{Scope: c.scope, Command: commandName(cmd)}
}

// handleEnvelope dispatches the verbs shared by all record kinds.
// Returns handled=false when the command is not an envelope verb, so the
// calling engine can try its kind-specific verbs.
func (c *core[T]) handleEnvelope(ctx context.Context, base Meta, cmd Command) (events []Event, handled bool, err error) {
	switch v := cmd.(type) {
	case *Delete:
		cc := repo.Any()
		if v.ExpectedRevision != nil {
			cc = repo.Expect(*v.ExpectedRevision)
		}
		derr := c.repo.Delete(ctx, v.ID, cc)
		if derr != nil && !repo.IsNotFound(derr) {
			return nil, true, derr
		}
		ok := derr == nil
		return []Event{c.emit(base, c.scope+".deleted", ir.Object{
			"id": ir.String(v.ID),
			"ok": ir.Bool(ok),
		})}, true, nil

	case *Describe:
		rec, gerr := c.repo.Get(ctx, v.ID)
		if gerr != nil {
			return nil, true, gerr
		}
		return []Event{c.emit(base, c.scope+".described", describePayload(rec))}, true, nil

	case *SetCore:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".coreSet", func(rec T) error {
			env := rec.Envelope()
			if v.Type != nil {
				if *v.Type == "" {
					return &ir.ValidationError{Field: "core.type", Message: "must not be empty"}
				}
				env.Core.Type = *v.Type
			}
			if v.Name != nil {
				env.Core.Name = *v.Name
			}
			if v.Description != nil {
				env.Core.Description = *v.Description
			}
			return nil
		})

	case *SetState:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".stateSet", func(rec T) error {
			if !ir.ValidStatuses[v.State.Status] {
				return &ir.ValidationError{Field: "state.status", Message: "unknown status"}
			}
			rec.Envelope().State = v.State.Clone()
			return nil
		})

	case *PatchState:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".statePatched", func(rec T) error {
			env := rec.Envelope()
			if v.Status != nil {
				if !ir.ValidStatuses[*v.Status] {
					return &ir.ValidationError{Field: "state.status", Message: "unknown status"}
				}
				env.State.Status = *v.Status
			}
			if v.Tags != nil {
				env.State.Tags = append([]string(nil), v.Tags...)
			}
			if v.Meta != nil {
				env.State.Meta = env.State.Meta.Merge(v.Meta)
			}
			return nil
		})

	case *SetFacets:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".facetsSet", func(rec T) error {
			rec.Envelope().Facets = v.Facets.Clone()
			return nil
		})

	case *MergeFacets:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".facetsMerged", func(rec T) error {
			env := rec.Envelope()
			env.Facets = env.Facets.Merge(v.Patch)
			return nil
		})

	case *SetSignature:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".signatureSet", func(rec T) error {
			rec.Envelope().Signature = v.Signature.Clone()
			return nil
		})

	case *MergeSignature:
		return c.mutate(ctx, base, v.ID, v.CommandMeta, c.scope+".signatureMerged", func(rec T) error {
			env := rec.Envelope()
			env.Signature = env.Signature.Merge(v.Patch)
			return nil
		})

	default:
		return nil, false, nil
	}
}

// mutate is the shared load-mutate-save-emit path of every envelope verb.
func (c *core[T]) mutate(ctx context.Context, base Meta, id string, meta CommandMeta, eventKind string, apply func(T) error) ([]Event, bool, error) {
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, true, err
	}
	if err := apply(rec); err != nil {
		return nil, true, err
	}
	saved, err := c.save(ctx, rec, meta)
	if err != nil {
		return nil, true, err
	}
	return []Event{c.emit(base, eventKind, ir.Object{
		"id":       ir.String(id),
		"revision": ir.Int(saved.Envelope().Revision),
	})}, true, nil
}

// describePayload builds the redacted summary: core and state in full,
// signature and facet maps as key lists only.
func describePayload[T ir.Record](rec T) ir.Object {
	env := rec.Envelope()
	state := ir.Object{"status": ir.String(string(env.State.Status))}
	if len(env.State.Tags) > 0 {
		tags := make(ir.Array, len(env.State.Tags))
		for i, tag := range env.State.Tags {
			tags[i] = ir.String(tag)
		}
		state["tags"] = tags
	}

	payload := ir.Object{
		"id":       ir.String(env.Core.ID),
		"type":     ir.String(env.Core.Type),
		"revision": ir.Int(env.Revision),
		"state":    state,
	}
	if env.Core.Name != "" {
		payload["name"] = ir.String(env.Core.Name)
	}
	payload["signature_keys"] = keyArray(env.Signature)
	payload["facet_keys"] = keyArray(env.Facets)
	return payload
}

func keyArray(o ir.Object) ir.Array {
	keys := o.SortedKeys()
	out := make(ir.Array, len(keys))
	for i, k := range keys {
		out[i] = ir.String(k)
	}
	return out
}
