// Package store owns the per-branch inventory tree (brand → model →
// variant → lot) and the branch profiles it hangs from.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/zaloga/internal/canonical"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/ledger"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
)

// maxIDLength bounds node identifiers.
const maxIDLength = 200

// Store is the inventory hierarchy store. Lot mutations and their ledger
// rows are written in one document-store transaction.
type Store struct {
	docs     docstore.Store
	ledger   *ledger.Ledger
	resolver *canonical.Resolver
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time

	// pending collects movements made inside a transaction; they are
	// counted once it commits. Nil outside a transaction.
	pending *[]model.Movement
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the clock used for node timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over docs.
func New(docs docstore.Store, opts ...Option) *Store {
	s := &Store{docs: docs, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(docs, s.log)
	s.resolver = canonical.NewResolver(s, s.log)
	return s
}

// Ledger returns the stock ledger the store writes to.
func (s *Store) Ledger() *ledger.Ledger { return s.ledger }

// Resolver returns the canonical id resolver bound to this store.
func (s *Store) Resolver() *canonical.Resolver { return s.resolver }

// Docs returns the underlying document store (or transaction).
func (s *Store) Docs() docstore.Store { return s.docs }

// RunTransaction runs fn with a Store bound to one document-store
// transaction. Inside a transaction it joins the running one.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if s.pending != nil {
		return fn(ctx, s)
	}

	var pending []model.Movement
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx docstore.Store) error {
		pending = pending[:0]
		return fn(ctx, s.withTx(tx, &pending))
	})
	if err != nil {
		return err
	}

	for _, m := range pending {
		s.metrics.Movement(string(m.Kind), m.Delta)
	}
	return nil
}

func (s *Store) withTx(tx docstore.Store, pending *[]model.Movement) *Store {
	cp := *s
	cp.docs = tx
	cp.ledger = s.ledger.WithTx(tx)
	cp.pending = pending
	cp.resolver = canonical.NewResolver(&cp, s.log)
	return &cp
}

// record appends a lot movement to the ledger.
func (s *Store) record(ctx context.Context, key model.LotKey, kind model.MovementKind, delta int, orderID, reason string) (*model.Movement, error) {
	m, err := s.ledger.RecordLot(ctx, key, kind, delta, orderID, reason)
	if err != nil || m == nil {
		return m, err
	}
	if s.pending != nil {
		*s.pending = append(*s.pending, *m)
	} else {
		s.metrics.Movement(string(m.Kind), m.Delta)
	}
	return m, nil
}

var branchesCollection = docstore.Collection("branches")

func branchRef(branchID string) docstore.DocRef {
	return branchesCollection.Doc(branchID)
}

func brandsCollection(branchID string) docstore.CollectionRef {
	return branchRef(branchID).Collection("inventory")
}

func brandRef(branchID, brandID string) docstore.DocRef {
	return brandsCollection(branchID).Doc(brandID)
}

func modelsCollection(branchID, brandID string) docstore.CollectionRef {
	return brandRef(branchID, brandID).Collection("models")
}

func modelRef(branchID, brandID, modelID string) docstore.DocRef {
	return modelsCollection(branchID, brandID).Doc(modelID)
}

func variantsCollection(branchID, brandID, modelID string) docstore.CollectionRef {
	return modelRef(branchID, brandID, modelID).Collection("variants")
}

func variantRef(k model.VariantKey) docstore.DocRef {
	return variantsCollection(k.BranchID, k.BrandID, k.ModelID).Doc(k.VariantID)
}

func lotsCollection(k model.VariantKey) docstore.CollectionRef {
	return variantRef(k).Collection("lots")
}

func lotRef(k model.LotKey) docstore.DocRef {
	return lotsCollection(k.VariantKey).Doc(k.LotCode)
}

// validateID rejects identifiers the document store cannot address.
func validateID(field, id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return &model.ValidationError{Field: field, Reason: "required"}
	case strings.Contains(id, "/"):
		return &model.ValidationError{Field: field, Reason: "must not contain '/'"}
	case len(id) > maxIDLength:
		return &model.ValidationError{Field: field, Reason: "too long"}
	}
	return nil
}

func validateVariantKey(k model.VariantKey) error {
	if err := validateID("branch_id", k.BranchID); err != nil {
		return err
	}
	if err := validateID("brand_id", k.BrandID); err != nil {
		return err
	}
	if err := validateID("model_id", k.ModelID); err != nil {
		return err
	}
	return validateID("variant_id", k.VariantID)
}

func validateLotKey(k model.LotKey) error {
	if err := validateVariantKey(k.VariantKey); err != nil {
		return err
	}
	return validateID("lot_code", k.LotCode)
}

// notFound translates docstore.ErrNotFound into a NotFoundError.
func notFound(err error, kind, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return &model.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
