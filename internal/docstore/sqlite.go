package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithClock overrides the clock used for store-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLite) { s.now = now }
}

// WithIDs overrides the id generator used by Add.
func WithIDs(newID func() string) Option {
	return func(s *SQLite) { s.newID = newID }
}

// SQLite is a Store backed by the documents table (see internal/db).
type SQLite struct {
	ops
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite wraps an open database that has the schema applied.
func NewSQLite(db *sql.DB, opts ...Option) *SQLite {
	s := &SQLite{db: db}
	s.q = db
	s.now = time.Now
	s.newID = uuid.NewString
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTransaction runs fn in a database transaction. The write lock is taken
// at BEGIN, so concurrent transactions serialize.
func (s *SQLite) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &sqliteTx{ops: ops{q: sqlTx, now: s.now, newID: s.newID}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	ops
}

// RunTransaction joins the running transaction.
func (t *sqliteTx) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

type ops struct {
	q     querier
	now   func() time.Time
	newID func() string
}

func (o ops) Get(ctx context.Context, ref DocRef, dst any) error {
	if err := ref.validate(); err != nil {
		return err
	}
	var data string
	err := o.q.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		ref.parent.path, ref.id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting %s: %w", ref, err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("decoding %s: %w", ref, err)
	}
	return nil
}

func (o ops) Exists(ctx context.Context, ref DocRef) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	var one int
	err := o.q.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = ? AND id = ?`,
		ref.parent.path, ref.id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", ref, err)
	}
	return true, nil
}

func (o ops) Set(ctx context.Context, ref DocRef, v any) error {
	if err := ref.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ref, err)
	}
	now := o.now().UnixNano()
	_, err = o.q.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ref.parent.path, ref.id, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("setting %s: %w", ref, err)
	}
	return nil
}

func (o ops) Create(ctx context.Context, ref DocRef, v any) error {
	if err := ref.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ref, err)
	}
	now := o.now().UnixNano()
	result, err := o.q.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO NOTHING`,
		ref.parent.path, ref.id, string(data), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating %s: %w", ref, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrExists)
	}
	return nil
}

func (o ops) Update(ctx context.Context, ref DocRef, fields map[string]any) error {
	if err := ref.validate(); err != nil {
		return err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding update for %s: %w", ref, err)
	}
	result, err := o.q.ExecContext(ctx,
		`UPDATE documents SET data = json_patch(data, ?), updated_at = ?
		 WHERE collection = ? AND id = ?`,
		string(patch), o.now().UnixNano(), ref.parent.path, ref.id,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", ref, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}

func (o ops) Delete(ctx context.Context, ref DocRef) error {
	if err := ref.validate(); err != nil {
		return err
	}
	result, err := o.q.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		ref.parent.path, ref.id,
	)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", ref, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return nil
}

func (o ops) Add(ctx context.Context, col CollectionRef, v any) (*Snapshot, error) {
	ref := col.Doc(o.newID())
	if err := ref.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ref, err)
	}
	now := o.now().UTC()

	var stored string
	err = o.q.QueryRowContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, json_set(?, '$.id', ?, '$.created_at', ?), ?, ?)
		 RETURNING data`,
		col.path, ref.id, string(data), ref.id, now.Format(time.RFC3339Nano), now.UnixNano(), now.UnixNano(),
	).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("appending to %s: %w", col.path, err)
	}

	return &Snapshot{Ref: ref, Data: json.RawMessage(stored), CreatedAt: now, UpdatedAt: now}, nil
}

func (o ops) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?`)
	args := []any{q.Collection.path}

	for _, f := range q.Filters {
		fmt.Fprintf(&b, ` AND json_extract(data, '$.%s') %s ?`, f.Field, sqlOps[f.Op])
		args = append(args, filterValue(f.Value))
	}
	if !q.CreatedFrom.IsZero() {
		b.WriteString(` AND created_at >= ?`)
		args = append(args, q.CreatedFrom.UnixNano())
	}
	if !q.CreatedTo.IsZero() {
		b.WriteString(` AND created_at < ?`)
		args = append(args, q.CreatedTo.UnixNano())
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.OrderBy != "" {
		fmt.Fprintf(&b, ` ORDER BY json_extract(data, '$.%s') %s, id %s`, q.OrderBy, dir, dir)
	} else {
		fmt.Fprintf(&b, ` ORDER BY created_at %s, id %s`, dir, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, q.Limit)
	}

	rows, err := o.q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Collection.path, err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var id, data string
		var created, updated int64
		if err := rows.Scan(&id, &data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", q.Collection.path, err)
		}
		snaps = append(snaps, Snapshot{
			Ref:       q.Collection.Doc(id),
			Data:      json.RawMessage(data),
			CreatedAt: time.Unix(0, created).UTC(),
			UpdatedAt: time.Unix(0, updated).UTC(),
		})
	}
	return snaps, rows.Err()
}

// filterValue converts Go values to what json_extract compares against.
func filterValue(v any) any {
	switch v := v.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}
