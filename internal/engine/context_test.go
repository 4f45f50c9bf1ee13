package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

func newContextEngine() (*ContextEngine, repo.Repository[*ir.Context]) {
	r := repo.NewMemory(ir.KindContext, repo.WithClock[*ir.Context](func() time.Time { return testNow }))
	e := NewContextEngine(r).WithClock(func() time.Time { return testNow })
	return e, r
}

func createContext(t *testing.T, e *ContextEngine, id string) {
	t.Helper()
	_, err := e.Handle(context.Background(), &CreateContext{ID: id, Type: "workspace"})
	require.NoError(t, err)
}

func TestContextAddEntityIdempotent(t *testing.T) {
	e, r := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	ref := ir.EntityRef{ID: "e1", Type: "task"}

	events, err := e.Handle(ctx, &AddEntity{ID: "c1", Ref: ref})
	require.NoError(t, err)
	assert.Equal(t, "context.entity.added", events[0].Kind)
	assert.Equal(t, ir.Bool(true), events[0].Payload["changed"])

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)

	// Re-adding the same member emits the event but skips the write.
	events, err = e.Handle(ctx, &AddEntity{ID: "c1", Ref: ref})
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), events[0].Payload["changed"])

	got, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision, "no-op membership change must not bump the revision")
	assert.Len(t, got.Entities, 1)
}

func TestContextRemoveAbsentEntityIsNoOp(t *testing.T) {
	e, r := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	events, err := e.Handle(ctx, &RemoveEntity{ID: "c1", Ref: ir.EntityRef{ID: "ghost", Type: "task"}})
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), events[0].Payload["changed"])

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Revision)
}

func TestContextAddEntitiesBatch(t *testing.T) {
	e, r := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	_, err := e.Handle(ctx, &AddEntity{ID: "c1", Ref: ir.EntityRef{ID: "e1", Type: "task"}})
	require.NoError(t, err)

	events, err := e.Handle(ctx, &AddEntities{ID: "c1", Refs: []ir.EntityRef{
		{ID: "e1", Type: "task"},
		{ID: "e2", Type: "task"},
		{ID: "e3", Type: "person"},
	}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), events[0].Payload["count"], "already-present members do not count")

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got.Entities, 3)
	assert.Equal(t, int64(2), got.Revision, "one batch is one write")
}

func TestContextBatchEventsCompleteAtPublish(t *testing.T) {
	bus := NewMemoryBus()
	r := repo.NewMemory(ir.KindContext, repo.WithClock[*ir.Context](func() time.Time { return testNow }))
	e := NewContextEngine(r, WithBus(bus)).WithClock(func() time.Time { return testNow })
	ctx := context.Background()
	createContext(t, e, "c1")

	// Capture the payload as delivered: the count must already be there,
	// and later mutation of the returned event must not reach it.
	var delivered []ir.Value
	bus.Subscribe("context.entities.added", func(evt Event) {
		delivered = append(delivered, evt.Payload["count"])
	})
	bus.Subscribe("context.relations.added", func(evt Event) {
		delivered = append(delivered, evt.Payload["count"])
	})

	events, err := e.Handle(ctx, &AddEntities{ID: "c1", Refs: []ir.EntityRef{
		{ID: "e1", Type: "task"},
		{ID: "e2", Type: "task"},
	}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), events[0].Payload["count"])

	events, err = e.Handle(ctx, &AddRelations{ID: "c1", RelationIDs: []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(1), events[0].Payload["count"])

	require.Len(t, delivered, 2)
	assert.Equal(t, ir.Int(2), delivered[0], "subscriber must see the entity count at delivery")
	assert.Equal(t, ir.Int(1), delivered[1], "subscriber must see the relation count at delivery")
}

func TestContextClearEntities(t *testing.T) {
	e, r := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	_, err := e.Handle(ctx, &AddEntity{ID: "c1", Ref: ir.EntityRef{ID: "e1", Type: "task"}})
	require.NoError(t, err)

	_, err = e.Handle(ctx, &ClearEntities{ID: "c1"})
	require.NoError(t, err)

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got.Entities)
	rev := got.Revision

	// Clearing an already-empty list is a no-op.
	events, err := e.Handle(ctx, &ClearEntities{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), events[0].Payload["changed"])

	got, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, rev, got.Revision)
}

func TestContextRelationMembership(t *testing.T) {
	e, r := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	_, err := e.Handle(ctx, &AddRelation{ID: "c1", RelationID: "r1"})
	require.NoError(t, err)

	events, err := e.Handle(ctx, &AddRelations{ID: "c1", RelationIDs: []string{"r1", "r2"}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(1), events[0].Payload["count"])

	_, err = e.Handle(ctx, &RemoveRelation{ID: "c1", RelationID: "r1"})
	require.NoError(t, err)

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, got.Relations)

	_, err = e.Handle(ctx, &ClearRelations{ID: "c1"})
	require.NoError(t, err)

	got, err = r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got.Relations)
}

func TestContextAddEntityValidatesRef(t *testing.T) {
	e, _ := newContextEngine()
	ctx := context.Background()
	createContext(t, e, "c1")

	_, err := e.Handle(ctx, &AddEntity{ID: "c1", Ref: ir.EntityRef{ID: "e1"}})
	assert.True(t, ir.IsValidationError(err), "refs without a type must be rejected")
}

func TestContextMembershipOnAbsentContext(t *testing.T) {
	e, _ := newContextEngine()

	_, err := e.Handle(context.Background(), &AddEntity{ID: "ghost", Ref: ir.EntityRef{ID: "e1", Type: "task"}})
	assert.True(t, repo.IsNotFound(err))
}
