// Package docstore is a small hierarchical document store: JSON documents
// addressed by slash-separated collection paths, with merge updates,
// filtered queries, appends with server-assigned ids and timestamps, and
// multi-document transactions.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the document already exists.
	ErrExists = errors.New("document already exists")
	// ErrInvalidPath is returned for empty ids or ids containing a slash.
	ErrInvalidPath = errors.New("invalid document path")
)

// Reader is the read side of the store.
type Reader interface {
	// Get decodes the document into dst. Returns ErrNotFound if absent.
	Get(ctx context.Context, ref DocRef, dst any) error
	// Exists reports whether the document exists.
	Exists(ctx context.Context, ref DocRef) (bool, error)
	// Query returns the documents of one collection matching q.
	Query(ctx context.Context, q Query) ([]Snapshot, error)
}

// Writer is the write side of the store.
type Writer interface {
	// Set creates or replaces the document.
	Set(ctx context.Context, ref DocRef, v any) error
	// Create writes the document, failing with ErrExists if it is present.
	Create(ctx context.Context, ref DocRef, v any) error
	// Update merges fields into an existing document (RFC 7396 semantics,
	// a nil value removes the field). Returns ErrNotFound if absent.
	Update(ctx context.Context, ref DocRef, fields map[string]any) error
	// Delete removes the document. Returns ErrNotFound if absent.
	Delete(ctx context.Context, ref DocRef) error
	// Add appends v to the collection under a new id. The store stamps
	// "id" and "created_at" into the stored document.
	Add(ctx context.Context, col CollectionRef, v any) (*Snapshot, error)
}

// Store is the full capability set handed to every component.
type Store interface {
	Reader
	Writer
	// RunTransaction runs fn inside a transaction. All reads and writes made
	// through tx commit together or not at all. Calling RunTransaction on a
	// transactional Store joins the running transaction.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// CollectionRef addresses a collection.
type CollectionRef struct {
	path string
}

// Collection returns a reference to a top-level or nested collection path.
func Collection(path string) CollectionRef {
	return CollectionRef{path: strings.Trim(path, "/")}
}

// Path returns the collection path.
func (c CollectionRef) Path() string { return c.path }

// Doc returns a reference to the document id inside the collection.
func (c CollectionRef) Doc(id string) DocRef {
	return DocRef{parent: c, id: id}
}

// DocRef addresses a single document.
type DocRef struct {
	parent CollectionRef
	id     string
}

// ID returns the document id.
func (d DocRef) ID() string { return d.id }

// Parent returns the collection holding the document.
func (d DocRef) Parent() CollectionRef { return d.parent }

// Path returns the full document path.
func (d DocRef) Path() string { return d.parent.path + "/" + d.id }

// Collection returns a sub-collection of the document.
func (d DocRef) Collection(name string) CollectionRef {
	return CollectionRef{path: d.Path() + "/" + name}
}

func (d DocRef) String() string { return d.Path() }

func (d DocRef) validate() error {
	if d.parent.path == "" || d.id == "" || strings.Contains(d.id, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, d.Path())
	}
	return nil
}

// Snapshot is one stored document.
type Snapshot struct {
	Ref       DocRef
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DataTo decodes the document body into v.
func (s Snapshot) DataTo(v any) error {
	if err := json.Unmarshal(s.Data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", s.Ref, err)
	}
	return nil
}

// Op is a comparison operator usable in a Filter.
type Op string

// Filter operators.
const (
	Eq Op = "=="
	Ne Op = "!="
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
)

var sqlOps = map[Op]string{Eq: "=", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">="}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Filter compares a (dotted) JSON field against a value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents from one collection.
type Query struct {
	Collection CollectionRef
	Filters    []Filter

	// CreatedFrom and CreatedTo bound the store-assigned creation time as
	// [CreatedFrom, CreatedTo). Zero values are unbounded.
	CreatedFrom time.Time
	CreatedTo   time.Time

	// OrderBy is a JSON field; empty orders by creation time.
	OrderBy string
	Desc    bool
	Limit   int
}

func (q Query) validate() error {
	if q.Collection.path == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		if _, ok := sqlOps[f.Op]; !ok {
			return fmt.Errorf("invalid filter operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order field %q", q.OrderBy)
	}
	return nil
}
