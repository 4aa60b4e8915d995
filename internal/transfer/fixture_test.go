package transfer

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/ledger"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recordingSink) Emit(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) got() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

type fixture struct {
	store   *store.Store
	svc     *Service
	sink    *recordingSink
	metrics *metrics.Metrics
}

var sellerVariant = model.VariantKey{BranchID: "B1", BrandID: "MICHELIN", ModelID: "pilot-sport-4", VariantID: "225-45-r17"}

// newFixture sets up seller B1 (Ljubljana) holding 10 units of Michelin
// Pilot Sport 4 225/45 R17 lot 2324, and an empty buyer B2 (Maribor).
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureOn(t, db.NewTestDB(t), opts...)
}

func newFixtureOn(t *testing.T, database *sql.DB, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	m := metrics.New()
	st := store.New(docstore.NewSQLite(database), store.WithMetrics(m))
	sink := &recordingSink{}
	opts = append([]Option{WithMetrics(m), WithEmitter(notify.NewEmitter(sink, nil, m))}, opts...)
	f := &fixture{store: st, svc: New(st, opts...), sink: sink, metrics: m}

	for _, b := range [][2]string{{"B1", "Ljubljana"}, {"B2", "Maribor"}} {
		if _, err := st.CreateBranch(ctx, b[0], b[1], ""); err != nil {
			t.Fatalf("CreateBranch: %v", err)
		}
	}
	brand, err := st.EnsureBrand(ctx, "B1", "Michelin")
	if err != nil {
		t.Fatalf("EnsureBrand: %v", err)
	}
	mdl, err := st.EnsureModel(ctx, "B1", brand.ID, "Pilot Sport 4")
	if err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}
	if _, err := st.EnsureVariant(ctx, "B1", brand.ID, mdl.ID, store.VariantInput{Spec: "225/45 R17"}); err != nil {
		t.Fatalf("EnsureVariant: %v", err)
	}
	f.addLot(t, "2324", 10)
	return f
}

func (f *fixture) addLot(t *testing.T, code string, qty int) {
	t.Helper()
	if _, err := f.store.AddLot(context.Background(), sellerVariant.Lot(code), qty, nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}
}

func (f *fixture) quantity(t *testing.T, key model.LotKey) int {
	t.Helper()
	lot, err := f.store.GetLot(context.Background(), key)
	if err != nil {
		t.Fatalf("GetLot %v: %v", key, err)
	}
	return lot.Quantity
}

func (f *fixture) movements(t *testing.T, filter ledger.MovementFilter) []model.Movement {
	t.Helper()
	rows, err := f.store.Ledger().Movements(context.Background(), filter)
	if err != nil {
		t.Fatalf("Movements: %v", err)
	}
	return rows
}

func (f *fixture) assertReconciled(t *testing.T, key model.LotKey) {
	t.Helper()
	sum, err := f.store.Ledger().LotBalance(context.Background(), key)
	if err != nil {
		t.Fatalf("LotBalance: %v", err)
	}
	if qty := f.quantity(t, key); sum != qty {
		t.Errorf("lot %s: ledger sum %d does not match quantity %d", key.LotCode, sum, qty)
	}
}

func (f *fixture) counter(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := f.metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	sum := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matches := label == ""
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					matches = true
				}
			}
			if matches {
				sum += m.GetCounter().GetValue()
			}
		}
	}
	return sum
}

// request creates an order from B2 to B1 for the given lines.
func (f *fixture) request(t *testing.T, items ...ItemInput) *model.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateInput{BuyerBranchID: "B2", SellerBranchID: "B1", Items: items})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return o
}

func line(lot string, qty int) ItemInput {
	return ItemInput{Brand: "michelin", Model: "PILOT SPORT 4", Specification: "225/45 R17", LotCode: lot, Quantity: qty}
}

func (f *fixture) approved(t *testing.T, items ...ItemInput) *model.Order {
	t.Helper()
	o := f.request(t, items...)
	if _, err := f.svc.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	return o
}

func asInvalidTransition(t *testing.T, err error) *model.InvalidTransitionError {
	t.Helper()
	var it *model.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	return it
}
