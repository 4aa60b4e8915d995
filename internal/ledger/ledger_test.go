package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

func newTestLedger(t *testing.T) (*Ledger, *docstore.SQLite) {
	t.Helper()
	docs := docstore.NewSQLite(db.NewTestDB(t))
	return New(docs, nil), docs
}

var testLot = model.VariantKey{BranchID: "B1", BrandID: "MICHELIN", ModelID: "pilot-sport-4", VariantID: "225-45-r17"}.Lot("2324")

func TestRecordMovement(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	m, err := l.RecordLot(ctx, testLot, model.MovementTransferOut, -4, "order-1", "")
	if err != nil {
		t.Fatalf("RecordLot: %v", err)
	}
	if m.ID == "" {
		t.Error("expected store-assigned id")
	}
	if m.CreatedAt.IsZero() {
		t.Error("expected store-assigned created_at")
	}
	if m.Event != "transfer.out" {
		t.Errorf("expected derived event transfer.out, got %q", m.Event)
	}

	rows, err := l.Movements(ctx, MovementFilter{OrderID: "order-1"})
	if err != nil {
		t.Fatalf("Movements: %v", err)
	}
	if len(rows) != 1 || rows[0].Delta != -4 || rows[0].ID != m.ID {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestRecordZeroDeltaIsNoop(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	m, err := l.RecordLot(ctx, testLot, model.MovementAdjustment, 0, "", "nothing")
	if err != nil || m != nil {
		t.Fatalf("expected nil, nil; got %v, %v", m, err)
	}

	rows, _ := l.Movements(ctx, MovementFilter{})
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestRecordValidates(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Record(context.Background(), model.Movement{Kind: model.MovementInbound, Delta: 1})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestLotBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	other := testLot
	other.LotCode = "2224"

	l.RecordLot(ctx, testLot, model.MovementInbound, 10, "", "lot created")
	l.RecordLot(ctx, testLot, model.MovementTransferOut, -4, "order-1", "")
	l.RecordLot(ctx, testLot, model.MovementAdjustment, 1, "", "recount")
	l.RecordLot(ctx, other, model.MovementInbound, 50, "", "lot created")

	sum, err := l.LotBalance(ctx, testLot)
	if err != nil {
		t.Fatalf("LotBalance: %v", err)
	}
	if sum != 7 {
		t.Errorf("expected balance 7, got %d", sum)
	}
}

func TestMovementsTimeRange(t *testing.T) {
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	docs := docstore.NewSQLite(db.NewTestDB(t), docstore.WithClock(func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}))
	l := New(docs, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.RecordLot(ctx, testLot, model.MovementInbound, 1, "", "")
	}

	from := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows, err := l.Movements(ctx, MovementFilter{BranchID: "B1", From: from, To: to})
	if err != nil {
		t.Fatalf("Movements: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows in range, got %d", len(rows))
	}
}

func TestEventsTaggedToBothBranches(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordEvent(ctx, model.OrderEvent{
		OrderID: "order-1", Event: model.EventOrderRequested,
		BuyerBranchID: "B2", SellerBranchID: "B1", To: model.StatusRequested,
	})
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	l.RecordEvent(ctx, model.OrderEvent{
		OrderID: "order-2", Event: model.EventOrderRequested,
		BuyerBranchID: "B3", SellerBranchID: "B4", To: model.StatusRequested,
	})

	for _, branch := range []string{"B1", "B2"} {
		evs, err := l.EventsForBranch(ctx, branch, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("EventsForBranch(%s): %v", branch, err)
		}
		if len(evs) != 1 || evs[0].OrderID != "order-1" {
			t.Errorf("branch %s: unexpected events %+v", branch, evs)
		}
	}

	evs, _ := l.EventsForOrder(ctx, "order-2")
	if len(evs) != 1 {
		t.Errorf("expected 1 event for order-2, got %d", len(evs))
	}
}

func TestWithTxRollsBack(t *testing.T) {
	l, docs := newTestLedger(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := docs.RunTransaction(ctx, func(ctx context.Context, tx docstore.Store) error {
		if _, err := l.WithTx(tx).RecordLot(ctx, testLot, model.MovementInbound, 5, "", ""); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rows, _ := l.Movements(ctx, MovementFilter{})
	if len(rows) != 0 {
		t.Errorf("expected rolled-back movement to be gone, got %d rows", len(rows))
	}
}
