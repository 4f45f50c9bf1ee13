package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/formgraph/internal/ir"
)

// SQLite is a Repository backed by one row per record in the shared
// records table. The revision column mirrors the envelope revision so
// optimistic writes are a single guarded UPDATE.
type SQLite[T ir.Record] struct {
	db    *DB
	kind  string
	blank func() T
	now   func() time.Time
}

// SQLiteOption configures a SQLite repository.
type SQLiteOption[T ir.Record] func(*SQLite[T])

// WithSQLiteClock overrides the time source used to stamp UpdatedAt.
func WithSQLiteClock[T ir.Record](now func() time.Time) SQLiteOption[T] {
	return func(s *SQLite[T]) { s.now = now }
}

// NewSQLite creates a repository for one record kind on a shared DB.
// blank must return a fresh zero record for decoding rows.
func NewSQLite[T ir.Record](db *DB, kind string, blank func() T, opts ...SQLiteOption[T]) *SQLite[T] {
	s := &SQLite[T]{
		db:    db,
		kind:  kind,
		blank: blank,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLite[T]) encode(rec T) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", &ir.SerializationError{Reason: err.Error()}
	}
	return string(body), nil
}

func (s *SQLite[T]) decode(body string) (T, error) {
	rec := s.blank()
	if err := json.Unmarshal([]byte(body), rec); err != nil {
		var zero T
		return zero, &ir.SerializationError{Reason: err.Error()}
	}
	return rec, nil
}

func (s *SQLite[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	id := rec.Envelope().Core.ID
	if id == "" {
		return zero, &ir.ValidationError{Field: "core.id", Message: "must not be empty"}
	}

	stored := rec.CloneRecord().(T)
	env := stored.Envelope()
	env.Revision = 0
	if env.Core.CreatedAt.IsZero() {
		now := s.now()
		env.Core.CreatedAt = now
		env.Core.UpdatedAt = now
	}

	body, err := s.encode(stored)
	if err != nil {
		return zero, err
	}

	result, err := s.db.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, revision, body, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
		ON CONFLICT(kind, id) DO NOTHING
	`,
		s.kind,
		id,
		body,
		env.Core.CreatedAt.UTC().Format(time.RFC3339Nano),
		env.Core.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", s.kind, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return zero, fmt.Errorf("create %s: rows affected: %w", s.kind, err)
	}
	if affected == 0 {
		return zero, &AlreadyExistsError{Kind: s.kind, ID: id}
	}
	return stored, nil
}

func (s *SQLite[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	var body string
	err := s.db.db.QueryRowContext(ctx, `
		SELECT body FROM records WHERE kind = ? AND id = ?
	`, s.kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, &NotFoundError{Kind: s.kind, ID: id}
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", s.kind, err)
	}
	return s.decode(body)
}

func (s *SQLite[T]) Save(ctx context.Context, rec T, cc Concurrency) (T, error) {
	var zero T
	id := rec.Envelope().Core.ID

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("save %s: begin tx: %w", s.kind, err)
	}
	defer tx.Rollback() // No-op if committed

	var storedRev int64
	var createdAt string
	err = tx.QueryRowContext(ctx, `
		SELECT revision, created_at FROM records WHERE kind = ? AND id = ?
	`, s.kind, id).Scan(&storedRev, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, &NotFoundError{Kind: s.kind, ID: id}
	}
	if err != nil {
		return zero, fmt.Errorf("save %s: read revision: %w", s.kind, err)
	}

	if err := cc.check(s.kind, id, storedRev); err != nil {
		return zero, err
	}

	next := rec.CloneRecord().(T)
	env := next.Envelope()
	env.Revision = storedRev + 1
	if created, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		env.Core.CreatedAt = created
	}
	env.Core.UpdatedAt = s.now()

	body, err := s.encode(next)
	if err != nil {
		return zero, err
	}

	// Guarded by revision so a concurrent writer between our read and
	// this update still loses.
	result, err := tx.ExecContext(ctx, `
		UPDATE records
		SET revision = ?, body = ?, updated_at = ?
		WHERE kind = ? AND id = ? AND revision = ?
	`,
		env.Revision,
		body,
		env.Core.UpdatedAt.UTC().Format(time.RFC3339Nano),
		s.kind,
		id,
		storedRev,
	)
	if err != nil {
		return zero, fmt.Errorf("save %s: update: %w", s.kind, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return zero, fmt.Errorf("save %s: rows affected: %w", s.kind, err)
	}
	if affected == 0 {
		return zero, &ConcurrencyConflictError{Kind: s.kind, ID: id, Expected: storedRev, Actual: storedRev + 1}
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("save %s: commit: %w", s.kind, err)
	}
	return next, nil
}

func (s *SQLite[T]) Delete(ctx context.Context, id string, cc Concurrency) error {
	var storedRev int64
	err := s.db.db.QueryRowContext(ctx, `
		SELECT revision FROM records WHERE kind = ? AND id = ?
	`, s.kind, id).Scan(&storedRev)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Kind: s.kind, ID: id}
	}
	if err != nil {
		return fmt.Errorf("delete %s: read revision: %w", s.kind, err)
	}

	if err := cc.check(s.kind, id, storedRev); err != nil {
		return err
	}

	result, err := s.db.db.ExecContext(ctx, `
		DELETE FROM records WHERE kind = ? AND id = ? AND revision = ?
	`, s.kind, id, storedRev)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: rows affected: %w", s.kind, err)
	}
	if affected == 0 {
		return &ConcurrencyConflictError{Kind: s.kind, ID: id, Expected: storedRev, Actual: storedRev + 1}
	}
	return nil
}

func (s *SQLite[T]) List(ctx context.Context) ([]T, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT body FROM records WHERE kind = ? ORDER BY id
	`, s.kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list %s: scan: %w", s.kind, err)
		}
		rec, err := s.decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	return out, nil
}

func (s *SQLite[T]) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records WHERE kind = ? AND id = ?
	`, s.kind, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", s.kind, err)
	}
	return count > 0, nil
}
