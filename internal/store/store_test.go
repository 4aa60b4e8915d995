package store

import (
	"context"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(docstore.NewSQLite(db.NewTestDB(t)))
}

// countingDocs counts writes that reach the document store.
type countingDocs struct {
	docstore.Store
	writes *int
}

func (c countingDocs) Set(ctx context.Context, ref docstore.DocRef, v any) error {
	*c.writes++
	return c.Store.Set(ctx, ref, v)
}

func (c countingDocs) Create(ctx context.Context, ref docstore.DocRef, v any) error {
	*c.writes++
	return c.Store.Create(ctx, ref, v)
}

func (c countingDocs) Update(ctx context.Context, ref docstore.DocRef, fields map[string]any) error {
	*c.writes++
	return c.Store.Update(ctx, ref, fields)
}

func (c countingDocs) Delete(ctx context.Context, ref docstore.DocRef) error {
	*c.writes++
	return c.Store.Delete(ctx, ref)
}

func (c countingDocs) Add(ctx context.Context, col docstore.CollectionRef, v any) (*docstore.Snapshot, error) {
	*c.writes++
	return c.Store.Add(ctx, col, v)
}

func (c countingDocs) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Store) error) error {
	return c.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Store) error {
		return fn(ctx, countingDocs{Store: tx, writes: c.writes})
	})
}

var testVariant = model.VariantKey{BranchID: "B1", BrandID: "MICHELIN", ModelID: "pilot-sport-4", VariantID: "225-45-r17"}

// seedVariant creates branch B1 with the Michelin Pilot Sport 4 225/45 R17 variant.
func seedVariant(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetBranch(ctx, "B1"); err != nil {
		if _, err := s.CreateBranch(ctx, "B1", "Ljubljana", ""); err != nil {
			t.Fatalf("CreateBranch: %v", err)
		}
	}
	brand, err := s.EnsureBrand(ctx, "B1", "Michelin")
	if err != nil {
		t.Fatalf("EnsureBrand: %v", err)
	}
	m, err := s.EnsureModel(ctx, "B1", brand.ID, "Pilot Sport 4")
	if err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	v, err := s.EnsureVariant(ctx, "B1", brand.ID, m.ID, VariantInput{Spec: "225/45 R17"})
	if err != nil {
		t.Fatalf("EnsureVariant: %v", err)
	}
	if got := (model.VariantKey{BranchID: "B1", BrandID: brand.ID, ModelID: m.ID, VariantID: v.ID}); got != testVariant {
		t.Fatalf("unexpected variant key %+v", got)
	}
}

// assertReconciled checks that the lot quantity equals its ledger sum.
func assertReconciled(t *testing.T, s *Store, key model.LotKey) {
	t.Helper()
	ctx := context.Background()

	want := 0
	if lot, err := s.GetLot(ctx, key); err == nil {
		want = lot.Quantity
	}
	sum, err := s.Ledger().LotBalance(ctx, key)
	if err != nil {
		t.Fatalf("LotBalance: %v", err)
	}
	if sum != want {
		t.Errorf("ledger sum %d does not match lot quantity %d", sum, want)
	}
}

func intPtr(v int) *int { return &v }
