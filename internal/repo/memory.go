package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roach88/formgraph/internal/ir"
)

// Memory is an in-memory Repository backed by a map. Safe for
// concurrent use. Records are deep-copied on the way in and out.
type Memory[T ir.Record] struct {
	mu    sync.RWMutex
	kind  string
	items map[string]T
	now   func() time.Time
}

// MemoryOption configures a Memory repository.
type MemoryOption[T ir.Record] func(*Memory[T])

// WithClock overrides the time source used to stamp UpdatedAt.
func WithClock[T ir.Record](now func() time.Time) MemoryOption[T] {
	return func(m *Memory[T]) { m.now = now }
}

// NewMemory creates an empty in-memory repository for one record kind.
func NewMemory[T ir.Record](kind string, opts ...MemoryOption[T]) *Memory[T] {
	m := &Memory[T]{
		kind:  kind,
		items: make(map[string]T),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	id := rec.Envelope().Core.ID
	if id == "" {
		return zero, &ir.ValidationError{Field: "core.id", Message: "must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; ok {
		return zero, &AlreadyExistsError{Kind: m.kind, ID: id}
	}

	stored := rec.CloneRecord().(T)
	env := stored.Envelope()
	env.Revision = 0
	if env.Core.CreatedAt.IsZero() {
		now := m.now()
		env.Core.CreatedAt = now
		env.Core.UpdatedAt = now
	}
	m.items[id] = stored
	return stored.CloneRecord().(T), nil
}

func (m *Memory[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.items[id]
	if !ok {
		var zero T
		return zero, &NotFoundError{Kind: m.kind, ID: id}
	}
	return stored.CloneRecord().(T), nil
}

func (m *Memory[T]) Save(ctx context.Context, rec T, cc Concurrency) (T, error) {
	var zero T
	id := rec.Envelope().Core.ID

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[id]
	if !ok {
		return zero, &NotFoundError{Kind: m.kind, ID: id}
	}
	if err := cc.check(m.kind, id, stored.Envelope().Revision); err != nil {
		return zero, err
	}

	next := rec.CloneRecord().(T)
	env := next.Envelope()
	env.Revision = stored.Envelope().Revision + 1
	env.Core.CreatedAt = stored.Envelope().Core.CreatedAt
	env.Core.UpdatedAt = m.now()
	m.items[id] = next
	return next.CloneRecord().(T), nil
}

func (m *Memory[T]) Delete(ctx context.Context, id string, cc Concurrency) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[id]
	if !ok {
		return &NotFoundError{Kind: m.kind, ID: id}
	}
	if err := cc.check(m.kind, id, stored.Envelope().Revision); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.items[id].CloneRecord().(T))
	}
	return out, nil
}

func (m *Memory[T]) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok, nil
}
