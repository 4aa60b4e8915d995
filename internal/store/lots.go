package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

// Reasons recorded on ledger rows written by the store itself.
const (
	ReasonLotCreated = "lot created"
	ReasonLotSet     = "quantity set"
	ReasonLotDeleted = "lot deleted"
)

// LotInput describes a lot to ensure. Nil fields are left unchanged on an
// existing lot.
type LotInput struct {
	Quantity   *int
	PromoPrice *decimal.Decimal
	Reason     string
}

// EnsureLot creates the lot if absent, otherwise sets its quantity (clamped
// at zero) and promo price when supplied. Quantity changes are ledgered in
// the same transaction.
func (s *Store) EnsureLot(ctx context.Context, key model.LotKey, in LotInput) (*model.Lot, error) {
	if err := validateLotKey(key); err != nil {
		return nil, err
	}
	if in.PromoPrice != nil && in.PromoPrice.IsNegative() {
		return nil, &model.ValidationError{Field: "promo_price", Reason: "must not be negative"}
	}

	var lot *model.Lot
	err := s.RunTransaction(ctx, func(ctx context.Context, tx *Store) error {
		var existing model.Lot
		err := tx.docs.Get(ctx, lotRef(key), &existing)
		if errors.Is(err, docstore.ErrNotFound) {
			qty := 0
			if in.Quantity != nil {
				qty = max(*in.Quantity, 0)
			}
			reason := in.Reason
			if reason == "" {
				reason = ReasonLotCreated
			}
			lot, err = tx.createLot(ctx, key, qty, in.PromoPrice, reason)
			return err
		}
		if err != nil {
			return fmt.Errorf("getting lot: %w", err)
		}

		fields := map[string]any{}
		delta := 0
		if in.Quantity != nil {
			qty := max(*in.Quantity, 0)
			delta = qty - existing.Quantity
			if delta != 0 {
				fields["quantity"] = qty
				existing.Quantity = qty
			}
		}
		if in.PromoPrice != nil && (existing.PromoPrice == nil || !existing.PromoPrice.Equal(*in.PromoPrice)) {
			fields["promo_price"] = in.PromoPrice
			existing.PromoPrice = in.PromoPrice
		}
		lot = &existing
		if len(fields) == 0 {
			return nil
		}

		now := tx.now().UTC()
		fields["updated_at"] = now
		existing.UpdatedAt = now
		if err := tx.docs.Update(ctx, lotRef(key), fields); err != nil {
			return fmt.Errorf("updating lot: %w", err)
		}
		reason := in.Reason
		if reason == "" {
			reason = ReasonLotSet
		}
		_, err = tx.record(ctx, key, model.MovementAdjustment, delta, "", reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// AddLot creates a new lot, failing with ConflictError if it exists.
func (s *Store) AddLot(ctx context.Context, key model.LotKey, quantity int, promo *decimal.Decimal) (*model.Lot, error) {
	if err := validateLotKey(key); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, &model.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if promo != nil && promo.IsNegative() {
		return nil, &model.ValidationError{Field: "promo_price", Reason: "must not be negative"}
	}

	var lot *model.Lot
	err := s.RunTransaction(ctx, func(ctx context.Context, tx *Store) error {
		var err error
		lot, err = tx.createLot(ctx, key, quantity, promo, ReasonLotCreated)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// createLot writes a new lot under an existing variant plus its opening
// inbound row. Must run inside a transaction.
func (s *Store) createLot(ctx context.Context, key model.LotKey, qty int, promo *decimal.Decimal, reason string) (*model.Lot, error) {
	if _, err := s.GetVariant(ctx, key.VariantKey); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	lot := &model.Lot{Code: key.LotCode, Quantity: qty, PromoPrice: promo, CreatedAt: now, UpdatedAt: now}
	if err := s.docs.Create(ctx, lotRef(key), lot); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return nil, &model.ConflictError{Kind: "lot", ID: key.LotCode}
		}
		return nil, fmt.Errorf("creating lot: %w", err)
	}
	if _, err := s.record(ctx, key, model.MovementInbound, qty, "", reason); err != nil {
		return nil, err
	}

	s.log.Info("lot created", "branch", key.BranchID, "variant", key.VariantID, "lot", key.LotCode, "quantity", qty)
	return lot, nil
}

// AdjustQuantity applies delta to a lot and records an inbound or outbound
// row by its sign. A delta that would take the lot below zero fails with
// InsufficientStockError and changes nothing.
func (s *Store) AdjustQuantity(ctx context.Context, key model.LotKey, delta int, reason string) (*model.Lot, error) {
	kind := model.MovementInbound
	if delta < 0 {
		kind = model.MovementOutbound
	}
	return s.ApplyMovement(ctx, key, delta, kind, "", reason)
}

// ApplyMovement changes a lot's quantity by delta and appends a ledger row
// of the given kind, both in one transaction. Zero delta is a no-op.
func (s *Store) ApplyMovement(ctx context.Context, key model.LotKey, delta int, kind model.MovementKind, orderID, reason string) (*model.Lot, error) {
	if err := validateLotKey(key); err != nil {
		return nil, err
	}

	var lot model.Lot
	err := s.RunTransaction(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.docs.Get(ctx, lotRef(key), &lot); err != nil {
			return notFound(err, "lot", key.LotCode)
		}
		if delta == 0 {
			return nil
		}

		qty := lot.Quantity + delta
		if qty < 0 {
			tx.metrics.InsufficientStock()
			return &model.InsufficientStockError{
				BranchID:      key.BranchID,
				Product:       key.BrandID + " " + key.ModelID,
				Specification: key.VariantID,
				LotCode:       key.LotCode,
				Available:     lot.Quantity,
				Requested:     -delta,
			}
		}

		now := tx.now().UTC()
		if err := tx.docs.Update(ctx, lotRef(key), map[string]any{"quantity": qty, "updated_at": now}); err != nil {
			return fmt.Errorf("updating lot quantity: %w", err)
		}
		lot.Quantity = qty
		lot.UpdatedAt = now

		_, err := tx.record(ctx, key, kind, delta, orderID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// SetPromoPrice sets the lot's promo price; nil clears it.
func (s *Store) SetPromoPrice(ctx context.Context, key model.LotKey, price *decimal.Decimal) error {
	if err := validateLotKey(key); err != nil {
		return err
	}
	if price != nil && price.IsNegative() {
		return &model.ValidationError{Field: "promo_price", Reason: "must not be negative"}
	}
	err := s.docs.Update(ctx, lotRef(key), map[string]any{"promo_price": price, "updated_at": s.now().UTC()})
	return notFound(err, "lot", key.LotCode)
}

// GetLot returns a lot.
func (s *Store) GetLot(ctx context.Context, key model.LotKey) (*model.Lot, error) {
	if err := validateLotKey(key); err != nil {
		return nil, err
	}
	var lot model.Lot
	if err := s.docs.Get(ctx, lotRef(key), &lot); err != nil {
		return nil, notFound(err, "lot", key.LotCode)
	}
	return &lot, nil
}

// DeleteLot removes a lot, first recording an adjustment that takes its
// remaining quantity to zero.
func (s *Store) DeleteLot(ctx context.Context, key model.LotKey, reason string) error {
	if err := validateLotKey(key); err != nil {
		return err
	}
	if reason == "" {
		reason = ReasonLotDeleted
	}

	return s.RunTransaction(ctx, func(ctx context.Context, tx *Store) error {
		var lot model.Lot
		if err := tx.docs.Get(ctx, lotRef(key), &lot); err != nil {
			return notFound(err, "lot", key.LotCode)
		}
		if _, err := tx.record(ctx, key, model.MovementAdjustment, -lot.Quantity, "", reason); err != nil {
			return err
		}
		if err := tx.docs.Delete(ctx, lotRef(key)); err != nil {
			return fmt.Errorf("deleting lot: %w", err)
		}
		tx.log.Info("lot deleted", "branch", key.BranchID, "variant", key.VariantID, "lot", key.LotCode, "quantity", lot.Quantity)
		return nil
	})
}

// ListLots returns the lots of a model, or of one variant when variantID
// is set, joined with their variant's spec and list price.
func (s *Store) ListLots(ctx context.Context, branchID, brandID, modelID, variantID string) ([]model.LotView, error) {
	var variants []model.Variant
	if variantID != "" {
		v, err := s.GetVariant(ctx, model.VariantKey{BranchID: branchID, BrandID: brandID, ModelID: modelID, VariantID: variantID})
		if err != nil {
			return nil, err
		}
		variants = []model.Variant{*v}
	} else {
		var err error
		if variants, err = s.ListVariants(ctx, branchID, brandID, modelID); err != nil {
			return nil, err
		}
	}

	var views []model.LotView
	for _, v := range variants {
		vk := model.VariantKey{BranchID: branchID, BrandID: brandID, ModelID: modelID, VariantID: v.ID}
		lots, err := s.lots(ctx, vk)
		if err != nil {
			return nil, err
		}
		for _, l := range lots {
			views = append(views, model.LotView{
				LotKey:     vk.Lot(l.Code),
				Spec:       v.Spec,
				ListPrice:  v.ListPrice,
				Quantity:   l.Quantity,
				PromoPrice: l.PromoPrice,
				UpdatedAt:  l.UpdatedAt,
			})
		}
	}
	return views, nil
}

func (s *Store) lots(ctx context.Context, vk model.VariantKey) ([]model.Lot, error) {
	snaps, err := s.docs.Query(ctx, docstore.Query{Collection: lotsCollection(vk), OrderBy: "code"})
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	lots := make([]model.Lot, 0, len(snaps))
	for _, snap := range snaps {
		var l model.Lot
		if err := snap.DataTo(&l); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, nil
}
