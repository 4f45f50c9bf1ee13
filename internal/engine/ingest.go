package engine

import (
	"context"
	"strings"

	"github.com/roach88/formgraph/internal/ir"
)

// ExternalRecord is an externally-asserted entity, typically one row of a
// snapshot sync. Revoked records are tombstones.
type ExternalRecord struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Revoked bool   `json:"revoked,omitempty" yaml:"revoked,omitempty"`
}

// ActionOp classifies one planned ingest action.
type ActionOp string

const (
	OpDelete ActionOp = "delete"
	OpUpsert ActionOp = "upsert"
)

// Action is one step of an ingest plan.
type Action struct {
	Op   ActionOp `json:"op"`
	ID   string   `json:"id"`
	Type string   `json:"type,omitempty"`
	Name string   `json:"name,omitempty"`
}

// Snapshot summarizes the batch a plan was derived from.
type Snapshot struct {
	Count int `json:"count"`
}

// Plan is the side-effect-free output of Process. Callers can diff or
// audit it before handing it to Commit.
type Plan struct {
	Actions  []Action `json:"actions"`
	Snapshot Snapshot `json:"snapshot"`
}

// CommitResult collects the outcome of replaying a plan.
type CommitResult struct {
	Success bool
	Errors  []error
	Events  []Event
}

// Process classifies a batch of external records into a plan: revoked
// records become deletes, everything else an upsert. No side effects.
//
// Records without an id fall back to a slug derived from the name; a
// record with neither is rejected.
func (e *EntityEngine) Process(records []ExternalRecord) (Plan, error) {
	actions := make([]Action, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		if id == "" {
			if rec.Name == "" {
				return Plan{}, &ir.ValidationError{Field: "id", Message: "record has neither id nor name"}
			}
			id = slugID(rec.Name)
		}

		// Tombstones resolve their id the same way as upserts, so a
		// revoked record can never vanish from the plan unnoticed.
		if rec.Revoked {
			actions = append(actions, Action{Op: OpDelete, ID: id})
			continue
		}

		typ := rec.Type
		if typ == "" {
			typ = "system.Entity"
		}
		actions = append(actions, Action{Op: OpUpsert, ID: id, Type: typ, Name: rec.Name})
	}

	return Plan{Actions: actions, Snapshot: Snapshot{Count: len(records)}}, nil
}

// Commit replays a plan through Handle: deletes delete, upserts create
// when the id is absent and patch core fields when present. Every emitted
// event is collected. Individual action failures are collected rather
// than aborting the batch.
func (e *EntityEngine) Commit(ctx context.Context, plan Plan) CommitResult {
	result := CommitResult{Success: true}

	for _, action := range plan.Actions {
		var events []Event
		var err error

		switch action.Op {
		case OpDelete:
			events, err = e.Handle(ctx, &Delete{ID: action.ID})

		case OpUpsert:
			exists, eerr := e.repo.Exists(ctx, action.ID)
			if eerr != nil {
				err = eerr
				break
			}
			if exists {
				events, err = e.Handle(ctx, &SetCore{
					ID:   action.ID,
					Type: &action.Type,
					Name: &action.Name,
				})
			} else {
				events, err = e.Handle(ctx, &CreateEntity{
					ID:   action.ID,
					Type: action.Type,
					Name: action.Name,
				})
			}
		}

		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Events = append(result.Events, events...)
	}

	return result
}

// slugID derives a stable entity id from a display name.
func slugID(name string) string {
	return "entity:" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
