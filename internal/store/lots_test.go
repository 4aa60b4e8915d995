package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/ledger"
	"github.com/erazemk/zaloga/internal/model"
)

var testLot = testVariant.Lot("2324")

func TestEnsureLotCreatesWithInboundRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	lot, err := s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(8)})
	if err != nil {
		t.Fatalf("EnsureLot: %v", err)
	}
	if lot.Quantity != 8 {
		t.Errorf("expected quantity 8, got %d", lot.Quantity)
	}

	rows, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot})
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	if rows[0].Kind != model.MovementInbound || rows[0].Delta != 8 || rows[0].Reason != ReasonLotCreated {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	assertReconciled(t, s, testLot)
}

func TestEnsureLotEmptyCreateWritesNoRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	if _, err := s.EnsureLot(ctx, testLot, LotInput{}); err != nil {
		t.Fatalf("EnsureLot: %v", err)
	}

	rows, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot})
	if len(rows) != 0 {
		t.Errorf("expected no ledger rows for an empty lot, got %d", len(rows))
	}
}

func TestEnsureLotSetsQuantityWithAdjustment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(8)})

	lot, err := s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(5)})
	if err != nil {
		t.Fatalf("EnsureLot: %v", err)
	}
	if lot.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", lot.Quantity)
	}

	// Same quantity again: no row.
	s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(5)})

	// Negative input clamps to zero.
	lot, _ = s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(-4)})
	if lot.Quantity != 0 {
		t.Errorf("expected clamp to 0, got %d", lot.Quantity)
	}

	rows, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot, Kind: model.MovementAdjustment})
	if len(rows) != 2 {
		t.Fatalf("expected 2 adjustment rows, got %d", len(rows))
	}
	if rows[0].Delta != -3 || rows[1].Delta != -5 {
		t.Errorf("unexpected adjustment deltas: %d, %d", rows[0].Delta, rows[1].Delta)
	}
	assertReconciled(t, s, testLot)
}

func TestEnsureLotPromoPrice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	promo := decimal.RequireFromString("99.50")
	s.EnsureLot(ctx, testLot, LotInput{Quantity: intPtr(2)})
	lot, err := s.EnsureLot(ctx, testLot, LotInput{PromoPrice: &promo})
	if err != nil {
		t.Fatalf("EnsureLot: %v", err)
	}
	if lot.Quantity != 2 {
		t.Errorf("expected quantity untouched, got %d", lot.Quantity)
	}
	if lot.PromoPrice == nil || !lot.PromoPrice.Equal(promo) {
		t.Errorf("expected promo 99.50, got %v", lot.PromoPrice)
	}

	if err := s.SetPromoPrice(ctx, testLot, nil); err != nil {
		t.Fatalf("SetPromoPrice: %v", err)
	}
	got, _ := s.GetLot(ctx, testLot)
	if got.PromoPrice != nil {
		t.Errorf("expected promo cleared, got %v", got.PromoPrice)
	}
}

func TestEnsureLotRequiresVariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	key := model.VariantKey{BranchID: "B1", BrandID: "MICHELIN", ModelID: "pilot-sport-4", VariantID: "nope"}.Lot("2324")
	_, err := s.EnsureLot(ctx, key, LotInput{Quantity: intPtr(1)})

	var nf *model.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "variant" {
		t.Fatalf("expected variant NotFoundError, got %v", err)
	}
}

func TestAddLotConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	if _, err := s.AddLot(ctx, testLot, 4, nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}
	_, err := s.AddLot(ctx, testLot, 6, nil)

	var conflict *model.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	lot, _ := s.GetLot(ctx, testLot)
	if lot.Quantity != 4 {
		t.Errorf("expected quantity 4 after failed add, got %d", lot.Quantity)
	}
	assertReconciled(t, s, testLot)
}

func TestAdjustQuantity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)
	s.AddLot(ctx, testLot, 10, nil)

	lot, err := s.AdjustQuantity(ctx, testLot, -3, "sold")
	if err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	if lot.Quantity != 7 {
		t.Errorf("expected quantity 7, got %d", lot.Quantity)
	}

	lot, _ = s.AdjustQuantity(ctx, testLot, 2, "restock")
	if lot.Quantity != 9 {
		t.Errorf("expected quantity 9, got %d", lot.Quantity)
	}

	out, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot, Kind: model.MovementOutbound})
	if len(out) != 1 || out[0].Delta != -3 || out[0].Reason != "sold" {
		t.Errorf("unexpected outbound rows: %+v", out)
	}
	assertReconciled(t, s, testLot)
}

func TestAdjustQuantityZeroIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)
	s.AddLot(ctx, testLot, 3, nil)

	if _, err := s.AdjustQuantity(ctx, testLot, 0, ""); err != nil {
		t.Fatalf("AdjustQuantity: %v", err)
	}
	rows, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot})
	if len(rows) != 1 {
		t.Errorf("expected only the opening row, got %d", len(rows))
	}
}

func TestAdjustQuantityBelowZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)
	s.AddLot(ctx, testLot, 3, nil)

	_, err := s.AdjustQuantity(ctx, testLot, -5, "")

	var insufficient *model.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 5 {
		t.Errorf("unexpected error detail: %+v", insufficient)
	}

	lot, _ := s.GetLot(ctx, testLot)
	if lot.Quantity != 3 {
		t.Errorf("expected quantity to stay 3, got %d", lot.Quantity)
	}
	assertReconciled(t, s, testLot)
}

func TestAdjustQuantityMissingLot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	_, err := s.AdjustQuantity(ctx, testLot, 1, "")

	var nf *model.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteLotRecordsRemainingQuantity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)
	s.AddLot(ctx, testLot, 7, nil)

	if err := s.DeleteLot(ctx, testLot, ""); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}

	if _, err := s.GetLot(ctx, testLot); err == nil {
		t.Error("expected lot to be gone")
	}

	rows, _ := s.Ledger().Movements(ctx, ledger.MovementFilter{Lot: &testLot})
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	last := rows[1]
	if last.Kind != model.MovementAdjustment || last.Delta != -7 || last.Reason != ReasonLotDeleted {
		t.Errorf("unexpected delete row: %+v", last)
	}
	assertReconciled(t, s, testLot)
}

func TestListLotsJoinsVariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedVariant(t, s)

	price := decimal.NewFromInt(120)
	s.SetListPrice(ctx, testVariant, &price)
	s.AddLot(ctx, testLot, 4, nil)
	s.AddLot(ctx, testVariant.Lot("0123"), 1, nil)

	lots, err := s.ListLots(ctx, "B1", "MICHELIN", "pilot-sport-4", "")
	if err != nil {
		t.Fatalf("ListLots: %v", err)
	}
	if len(lots) != 2 {
		t.Fatalf("expected 2 lots, got %d", len(lots))
	}
	if lots[0].LotCode != "0123" || lots[1].LotCode != "2324" {
		t.Errorf("expected lots ordered by code, got %s, %s", lots[0].LotCode, lots[1].LotCode)
	}
	if lots[1].Spec != "225/45 R17" || lots[1].ListPrice == nil || !lots[1].ListPrice.Equal(price) {
		t.Errorf("expected variant fields joined, got %+v", lots[1])
	}
}
