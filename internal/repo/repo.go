package repo

import (
	"context"

	"github.com/roach88/formgraph/internal/ir"
)

// Concurrency carries the optimistic concurrency expectation of a write.
// A nil ExpectedRevision means unconditional: the write applies to
// whatever revision is stored.
type Concurrency struct {
	ExpectedRevision *int64
}

// Any returns an unconditional write expectation.
func Any() Concurrency {
	return Concurrency{}
}

// Expect returns an expectation that the stored revision equals rev.
func Expect(rev int64) Concurrency {
	return Concurrency{ExpectedRevision: &rev}
}

// check compares the expectation against the stored revision.
func (c Concurrency) check(kind, id string, stored int64) error {
	if c.ExpectedRevision == nil {
		return nil
	}
	if *c.ExpectedRevision != stored {
		return &ConcurrencyConflictError{
			Kind:     kind,
			ID:       id,
			Expected: *c.ExpectedRevision,
			Actual:   stored,
		}
	}
	return nil
}

// Repository is the storage contract shared by all four record kinds.
//
// Create persists a fresh record at revision 0 and fails with
// AlreadyExistsError when the id is taken. Save persists a mutated
// record: it checks cc against the stored revision, bumps the stored
// revision by exactly one, stamps UpdatedAt, and returns the stored
// copy. Delete removes the record under the same revision check.
// Get and List return deep copies in deterministic id order.
type Repository[T ir.Record] interface {
	Create(ctx context.Context, rec T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, rec T, cc Concurrency) (T, error)
	Delete(ctx context.Context, id string, cc Concurrency) error
	List(ctx context.Context) ([]T, error)
	Exists(ctx context.Context, id string) (bool, error)
}
