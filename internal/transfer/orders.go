package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemInput is one requested line. Brand and Model may be display names or
// ids; they are resolved against the seller's inventory.
type ItemInput struct {
	Brand         string
	Model         string
	VariantID     string
	Specification string
	LotCode       string
	Quantity      int
	UnitPrice     *decimal.Decimal
}

// CreateInput describes a new transfer request.
type CreateInput struct {
	BuyerBranchID  string
	SellerBranchID string
	Items          []ItemInput
	Note           string
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.BuyerBranchID) == "" {
		return &model.ValidationError{Field: "buyer_branch_id", Reason: "required"}
	}
	if strings.TrimSpace(in.SellerBranchID) == "" {
		return &model.ValidationError{Field: "seller_branch_id", Reason: "required"}
	}
	if in.BuyerBranchID == in.SellerBranchID {
		return &model.ValidationError{Field: "seller_branch_id", Reason: "buyer and seller must differ"}
	}
	if len(in.Items) == 0 {
		return &model.ValidationError{Field: "items", Reason: "at least one item required"}
	}
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case strings.TrimSpace(it.Brand) == "" || strings.TrimSpace(it.Model) == "":
			return &model.ValidationError{Field: field, Reason: "brand and model required"}
		case it.VariantID == "" && strings.TrimSpace(it.Specification) == "":
			return &model.ValidationError{Field: field, Reason: "variant or specification required"}
		case strings.TrimSpace(it.LotCode) == "":
			return &model.ValidationError{Field: field, Reason: "lot code required"}
		case it.Quantity <= 0:
			return &model.ValidationError{Field: field, Reason: "quantity must be positive"}
		case it.UnitPrice != nil && it.UnitPrice.IsNegative():
			return &model.ValidationError{Field: field, Reason: "unit price must not be negative"}
		}
	}
	return nil
}

// Create records a new transfer request from buyer to seller. Every line
// must name an existing seller lot.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var order *model.Order
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx *store.Store) error {
		buyer, err := tx.ActiveBranch(ctx, in.BuyerBranchID)
		if err != nil {
			return err
		}
		seller, err := tx.ActiveBranch(ctx, in.SellerBranchID)
		if err != nil {
			return err
		}

		items := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			item, err := s.resolveItem(ctx, tx, seller.ID, it)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		now := s.now().UTC()
		id := s.newID()
		order = &model.Order{
			ID:               id,
			Number:           orderNumber(now, id),
			BuyerBranchID:    buyer.ID,
			BuyerBranchName:  buyer.Name,
			SellerBranchID:   seller.ID,
			SellerBranchName: seller.Name,
			Items:            items,
			Status:           model.StatusRequested,
			Note:             strings.TrimSpace(in.Note),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Docs().Create(ctx, orderRef(id), order); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		_, err = tx.Ledger().RecordEvent(ctx, model.OrderEvent{
			OrderID:        order.ID,
			OrderNumber:    order.Number,
			Event:          model.EventOrderRequested,
			BuyerBranchID:  order.BuyerBranchID,
			SellerBranchID: order.SellerBranchID,
			ActorBranchID:  order.BuyerBranchID,
			To:             model.StatusRequested,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transfer requested", "order", order.ID, "number", order.Number,
		"buyer", order.BuyerBranchID, "seller", order.SellerBranchID, "quantity", order.TotalQuantity())
	s.metrics.Transition(model.EventOrderRequested)
	s.emitter.Emit(ctx, notify.Event{
		BranchID: order.SellerBranchID,
		Title:    "New transfer request",
		Message:  fmt.Sprintf("%s requested %d units (%s).", order.BuyerBranchName, order.TotalQuantity(), order.Number),
		Link:     orderLink(order.ID),
		OrderID:  order.ID,
		Event:    model.EventOrderRequested,
	})
	return order, nil
}

// resolveItem maps a requested line onto the seller's canonical nodes.
func (s *Service) resolveItem(ctx context.Context, tx *store.Store, sellerID string, it ItemInput) (model.OrderItem, error) {
	ids := tx.Resolver().ResolveCanonicalIDs(ctx, sellerID, it.Brand, it.Model)

	brand, err := tx.GetBrand(ctx, sellerID, ids.BrandID)
	if err != nil {
		return model.OrderItem{}, err
	}
	m, err := tx.GetModel(ctx, sellerID, ids.BrandID, ids.ModelID)
	if err != nil {
		return model.OrderItem{}, err
	}

	var variant *model.Variant
	if it.VariantID != "" {
		variant, err = tx.GetVariant(ctx, model.VariantKey{BranchID: sellerID, BrandID: brand.ID, ModelID: m.ID, VariantID: it.VariantID})
	} else {
		variant, err = tx.FindVariant(ctx, sellerID, brand.ID, m.ID, it.Specification)
	}
	if err != nil {
		return model.OrderItem{}, err
	}

	key := model.VariantKey{BranchID: sellerID, BrandID: brand.ID, ModelID: m.ID, VariantID: variant.ID}.Lot(strings.TrimSpace(it.LotCode))
	lot, err := tx.GetLot(ctx, key)
	if err != nil {
		return model.OrderItem{}, err
	}

	price := it.UnitPrice
	if price == nil {
		price = variant.ListPrice
	}
	return model.OrderItem{
		BrandID:       brand.ID,
		BrandName:     brand.Name,
		ModelID:       m.ID,
		ModelName:     m.Name,
		VariantID:     variant.ID,
		Specification: variant.Spec,
		LotCode:       lot.Code,
		Quantity:      it.Quantity,
		UnitPrice:     price,
		PromoPrice:    lot.PromoPrice,
	}, nil
}

// Get returns an order with its status in canonical form.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	return getOrder(ctx, s.store, id)
}

func getOrder(ctx context.Context, st *store.Store, id string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return nil, &model.ValidationError{Field: "order_id", Reason: "invalid id"}
	}
	var o model.Order
	if err := st.Docs().Get(ctx, orderRef(id), &o); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, &model.NotFoundError{Kind: "order", ID: id}
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o.StoredStatus = o.Status
	o.Status = o.Status.Canonical()
	return &o, nil
}

// Role selects which side of an order ListOrders matches.
type Role string

// Roles.
const (
	RoleAny    Role = ""
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole parses a role name. Empty and "any" match both sides.
func ParseRole(v string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(v))); r {
	case RoleAny, "any":
		return RoleAny, nil
	case RoleBuyer, RoleSeller:
		return r, nil
	}
	return "", &model.ValidationError{Field: "role", Reason: "must be buyer, seller or any"}
}

// ListFilter selects orders for ListOrders.
type ListFilter struct {
	BranchID string
	Role     Role
	Statuses []model.Status
}

// ListOrders returns a branch's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]model.Order, error) {
	if strings.TrimSpace(f.BranchID) == "" {
		return nil, &model.ValidationError{Field: "branch_id", Reason: "required"}
	}

	var fields []string
	switch f.Role {
	case RoleBuyer:
		fields = []string{"buyer_branch_id"}
	case RoleSeller:
		fields = []string{"seller_branch_id"}
	default:
		fields = []string{"buyer_branch_id", "seller_branch_id"}
	}

	want := make(map[model.Status]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		want[st.Canonical()] = true
	}

	var orders []model.Order
	for _, field := range fields {
		snaps, err := s.store.Docs().Query(ctx, docstore.Query{
			Collection: ordersCollection,
			Filters:    []docstore.Filter{docstore.Where(field, docstore.Eq, f.BranchID)},
		})
		if err != nil {
			return nil, fmt.Errorf("listing orders: %w", err)
		}
		for _, snap := range snaps {
			var o model.Order
			if err := snap.DataTo(&o); err != nil {
				return nil, err
			}
			o.StoredStatus = o.Status
			o.Status = o.Status.Canonical()
			if len(want) > 0 && !want[o.Status] {
				continue
			}
			orders = append(orders, o)
		}
	}

	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// Events returns the workflow events of an order, oldest first.
func (s *Service) Events(ctx context.Context, orderID string) ([]model.OrderEvent, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Ledger().EventsForOrder(ctx, orderID)
}
