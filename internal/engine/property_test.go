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

func newPropertyEngine() (*PropertyEngine, repo.Repository[*ir.Property]) {
	r := repo.NewMemory(ir.KindProperty, repo.WithClock[*ir.Property](func() time.Time { return testNow }))
	e := NewPropertyEngine(r).WithClock(func() time.Time { return testNow })
	return e, r
}

func createProperty(t *testing.T, e *PropertyEngine, id string) {
	t.Helper()
	_, err := e.Handle(context.Background(), &CreateProperty{
		ID: id, Type: "attribute", ContextID: "c1", Key: "status",
	})
	require.NoError(t, err)
}

func TestPropertyCreateRequiresContext(t *testing.T) {
	e, _ := newPropertyEngine()

	_, err := e.Handle(context.Background(), &CreateProperty{ID: "p1", Type: "attribute"})
	assert.True(t, ir.IsValidationError(err))
}

func TestPropertyBindingExclusivityThroughEngine(t *testing.T) {
	e, r := newPropertyEngine()
	ctx := context.Background()
	createProperty(t, e, "p1")

	_, err := e.Handle(ctx, &BindEntity{ID: "p1", Ref: ir.EntityRef{ID: "e1", Type: "task"}})
	require.NoError(t, err)

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.Entity)
	assert.Empty(t, got.RelationID)

	events, err := e.Handle(ctx, &BindRelation{ID: "p1", RelationID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "property.relationBound", events[0].Kind)

	got, err = r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.Entity, "relation binding clears the entity binding")
	assert.Equal(t, "r1", got.RelationID)

	_, err = e.Handle(ctx, &ClearBinding{ID: "p1"})
	require.NoError(t, err)

	got, err = r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.Entity)
	assert.Empty(t, got.RelationID)
}

func TestPropertySetAndClearValue(t *testing.T) {
	e, r := newPropertyEngine()
	ctx := context.Background()
	createProperty(t, e, "p1")

	_, err := e.Handle(ctx, &SetValue{ID: "p1", Value: ir.Float(0.75), ValueType: ir.ValueNumber})
	require.NoError(t, err)

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, ir.Float(0.75), got.Value)
	assert.Equal(t, ir.ValueNumber, got.ValueType)

	_, err = e.Handle(ctx, &ClearValue{ID: "p1"})
	require.NoError(t, err)

	got, err = r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.Value)
	assert.Empty(t, got.ValueType)
}

func TestPropertySetValueRejectsUnknownType(t *testing.T) {
	e, _ := newPropertyEngine()
	ctx := context.Background()
	createProperty(t, e, "p1")

	_, err := e.Handle(ctx, &SetValue{ID: "p1", Value: ir.String("x"), ValueType: "blob"})
	assert.True(t, ir.IsValidationError(err))
}

func TestPropertyBindAbsentFails(t *testing.T) {
	e, _ := newPropertyEngine()

	_, err := e.Handle(context.Background(), &BindEntity{ID: "ghost", Ref: ir.EntityRef{ID: "e1", Type: "task"}})
	assert.True(t, repo.IsNotFound(err))
}

func TestPropertyEnvelopeVerbsApply(t *testing.T) {
	e, r := newPropertyEngine()
	ctx := context.Background()
	createProperty(t, e, "p1")

	_, err := e.Handle(ctx, &MergeFacets{ID: "p1", Patch: ir.Object{"determining": ir.Object{"expressive": ir.Bool(true)}}})
	require.NoError(t, err)

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Contains(t, got.Facets, "determining")
	assert.Equal(t, int64(1), got.Revision)
}
