package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formgraph/internal/ir"
)

func TestProcessClassifiesRecords(t *testing.T) {
	e, _ := newEntityEngine()

	plan, err := e.Process([]ExternalRecord{
		{ID: "e1", Type: "task", Name: "build"},
		{ID: "e2", Revoked: true},
		{Name: "Deploy Service"},
	})
	require.NoError(t, err)

	require.Len(t, plan.Actions, 3)
	assert.Equal(t, Action{Op: OpUpsert, ID: "e1", Type: "task", Name: "build"}, plan.Actions[0])
	assert.Equal(t, Action{Op: OpDelete, ID: "e2"}, plan.Actions[1])
	assert.Equal(t, Action{Op: OpUpsert, ID: "entity:deploy-service", Type: "system.Entity", Name: "Deploy Service"}, plan.Actions[2])
	assert.Equal(t, 3, plan.Snapshot.Count)
}

func TestProcessHasNoSideEffects(t *testing.T) {
	e, r := newEntityEngine()

	_, err := e.Process([]ExternalRecord{{ID: "e1", Type: "task"}})
	require.NoError(t, err)

	all, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "process must not touch the repository")
}

func TestProcessRejectsAnonymousRecord(t *testing.T) {
	e, _ := newEntityEngine()

	_, err := e.Process([]ExternalRecord{{Type: "task"}})
	assert.True(t, ir.IsValidationError(err))
}

func TestProcessRevokedRecordWithoutID(t *testing.T) {
	e, _ := newEntityEngine()

	// A named tombstone resolves to the same slug id as its upsert would,
	// so the delete lands in the plan instead of being dropped.
	plan, err := e.Process([]ExternalRecord{{Name: "Deploy Service", Revoked: true}})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, Action{Op: OpDelete, ID: "entity:deploy-service"}, plan.Actions[0])
	assert.Equal(t, 1, plan.Snapshot.Count)

	// An anonymous tombstone cannot be resolved at all.
	_, err = e.Process([]ExternalRecord{{Revoked: true}})
	assert.True(t, ir.IsValidationError(err), "a tombstone with neither id nor name must be rejected")
}

func TestCommitCreatesAndPatches(t *testing.T) {
	e, r := newEntityEngine()
	ctx := context.Background()

	plan, err := e.Process([]ExternalRecord{{ID: "e1", Type: "task", Name: "build"}})
	require.NoError(t, err)

	result := e.Commit(ctx, plan)
	assert.True(t, result.Success)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "entity.created", result.Events[0].Kind)

	// Committing an updated snapshot patches core fields instead of failing.
	plan, err = e.Process([]ExternalRecord{{ID: "e1", Type: "task", Name: "build-v2"}})
	require.NoError(t, err)

	result = e.Commit(ctx, plan)
	assert.True(t, result.Success)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "entity.coreSet", result.Events[0].Kind)

	got, err := r.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "build-v2", got.Core.Name)
	assert.Equal(t, int64(1), got.Revision)
}

func TestCommitAppliesDeletes(t *testing.T) {
	e, r := newEntityEngine()
	ctx := context.Background()

	result := e.Commit(ctx, Plan{Actions: []Action{
		{Op: OpUpsert, ID: "e1", Type: "task"},
		{Op: OpUpsert, ID: "e2", Type: "task"},
	}})
	require.True(t, result.Success)

	result = e.Commit(ctx, Plan{Actions: []Action{
		{Op: OpDelete, ID: "e1"},
	}})
	assert.True(t, result.Success)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "e2", all[0].Core.ID)
}

func TestCommitCollectsErrorsAndContinues(t *testing.T) {
	e, r := newEntityEngine()
	ctx := context.Background()

	result := e.Commit(ctx, Plan{Actions: []Action{
		{Op: OpUpsert, ID: "", Type: "task"}, // invalid: empty id
		{Op: OpUpsert, ID: "e2", Type: "task"},
	}})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)

	got, err := r.Get(ctx, "e2")
	require.NoError(t, err, "later actions still apply after an earlier failure")
	assert.Equal(t, "e2", got.Core.ID)
}
