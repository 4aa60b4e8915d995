package transfer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

// Default reasons stored when the caller gives none.
const (
	DefaultRejectReason = "Rejected by seller"
	DefaultCancelReason = "Cancelled by buyer"
)

// step is one edge of the workflow.
type step struct {
	verb  string
	event string
	from  []model.Status
	to    model.Status
	// settled is the status in which repeating the call is a no-op.
	settled model.Status
	byBuyer bool
}

var (
	approveStep = step{verb: "approve", event: model.EventOrderApproved,
		from: []model.Status{model.StatusRequested}, to: model.StatusApproved, settled: model.StatusApproved}
	rejectStep = step{verb: "reject", event: model.EventOrderRejected,
		from: []model.Status{model.StatusRequested, model.StatusApproved}, to: model.StatusRejected}
	cancelStep = step{verb: "cancel", event: model.EventOrderCancelled,
		from: []model.Status{model.StatusRequested, model.StatusApproved}, to: model.StatusCancelled, byBuyer: true}
	shipStep = step{verb: "ship", event: model.EventOrderShipped,
		from: []model.Status{model.StatusApproved}, to: model.StatusShipped, settled: model.StatusShipped}
	receiveStep = step{verb: "receive", event: model.EventOrderReceived,
		from: []model.Status{model.StatusShipped}, to: model.StatusReceived, settled: model.StatusReceived, byBuyer: true}
)

// check reports whether the step may leave status, and whether it would be
// a no-op.
func (st step) check(o *model.Order) (noop bool, err error) {
	if st.settled != "" && o.Status == st.settled {
		return true, nil
	}
	if !slices.Contains(st.from, o.Status) {
		return false, &model.InvalidTransitionError{OrderID: o.ID, Current: o.Status, Stored: o.StoredStatus, Event: st.verb}
	}
	return false, nil
}

// lineFunc applies one order line inside a transaction.
type lineFunc func(ctx context.Context, tx *store.Store, o *model.Order, it model.OrderItem) error

// Approve accepts a requested order. Approving an approved order, including
// one stored under the legacy "confirmed" status, is a no-op.
func (s *Service) Approve(ctx context.Context, orderID string) (*model.Order, error) {
	return s.transition(ctx, orderID, approveStep, "", nil)
}

// Reject declines a requested or approved order.
func (s *Service) Reject(ctx context.Context, orderID, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectReason
	}
	return s.transition(ctx, orderID, rejectStep, reason, nil)
}

// Cancel withdraws a requested or approved order on behalf of the buyer.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancelReason
	}
	return s.transition(ctx, orderID, cancelStep, reason, nil)
}

// Ship takes every line out of the seller's lots. Shipping a shipped order
// is a no-op. If any lot cannot cover its line the order stays approved.
func (s *Service) Ship(ctx context.Context, orderID string) (*model.Order, error) {
	return s.moveStock(ctx, orderID, shipStep, s.shipLine)
}

// Deliver is Ship under its legacy name.
func (s *Service) Deliver(ctx context.Context, orderID string) (*model.Order, error) {
	return s.Ship(ctx, orderID)
}

// Receive books every line into the buyer's lots, creating the buyer's
// brand, model, variant and lot nodes as needed. Receiving a received
// order is a no-op.
func (s *Service) Receive(ctx context.Context, orderID string) (*model.Order, error) {
	return s.moveStock(ctx, orderID, receiveStep, s.receiveLine)
}

func (s *Service) moveStock(ctx context.Context, orderID string, st step, line lineFunc) (*model.Order, error) {
	if s.mode != ShipmentPerLine {
		return s.transition(ctx, orderID, st, "", func(ctx context.Context, tx *store.Store, o *model.Order) error {
			for _, it := range o.Items {
				if err := line(ctx, tx, o, it); err != nil {
					return err
				}
			}
			return nil
		})
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	noop, err := st.check(o)
	if err != nil {
		return nil, err
	}
	if noop {
		return o, nil
	}
	for i, it := range o.Items {
		err := s.store.RunTransaction(ctx, func(ctx context.Context, tx *store.Store) error {
			return line(ctx, tx, o, it)
		})
		if err != nil {
			s.log.Warn("transfer line failed, earlier lines stay applied", "order", o.ID, "event", st.event,
				"line", i, "applied", i, "error", err)
			return nil, err
		}
	}
	return s.transition(ctx, orderID, st, "", nil)
}

func (s *Service) shipLine(ctx context.Context, tx *store.Store, o *model.Order, it model.OrderItem) error {
	key, err := sellerLot(ctx, tx, o.SellerBranchID, it)
	if err != nil {
		return fmt.Errorf("resolving %s at branch %s: %w", it.Product(), o.SellerBranchID, err)
	}

	_, err = tx.ApplyMovement(ctx, key, -it.Quantity, model.MovementTransferOut, o.ID, "transfer "+o.Number)
	var insufficient *model.InsufficientStockError
	if errors.As(err, &insufficient) {
		insufficient.Product = it.Product()
		insufficient.Specification = it.Specification
	}
	return err
}

// sellerLot resolves a line's lot in the seller's current inventory. The
// stored ids are resolved again, falling back to the display names, and
// the variant is matched by specification when its id no longer exists.
func sellerLot(ctx context.Context, tx *store.Store, sellerID string, it model.OrderItem) (model.LotKey, error) {
	r := tx.Resolver()

	brandID := r.ResolveBrandID(ctx, sellerID, firstNonEmpty(it.BrandID, it.BrandName))
	ok, err := tx.BrandExists(ctx, sellerID, brandID)
	if err != nil {
		return model.LotKey{}, err
	}
	if !ok && it.BrandName != "" {
		brandID = r.ResolveBrandID(ctx, sellerID, it.BrandName)
	}

	modelID := r.ResolveModelID(ctx, sellerID, brandID, firstNonEmpty(it.ModelID, it.ModelName))
	if ok, err = tx.ModelExists(ctx, sellerID, brandID, modelID); err != nil {
		return model.LotKey{}, err
	}
	if !ok && it.ModelName != "" {
		modelID = r.ResolveModelID(ctx, sellerID, brandID, it.ModelName)
	}

	vk := model.VariantKey{BranchID: sellerID, BrandID: brandID, ModelID: modelID, VariantID: it.VariantID}
	if _, err := tx.GetVariant(ctx, vk); err != nil {
		var nf *model.NotFoundError
		var invalid *model.ValidationError
		if !errors.As(err, &nf) && !errors.As(err, &invalid) {
			return model.LotKey{}, err
		}
		if v, ferr := tx.FindVariant(ctx, sellerID, brandID, modelID, it.Specification); ferr == nil {
			vk.VariantID = v.ID
		} else if !errors.As(ferr, &nf) {
			return model.LotKey{}, ferr
		}
	}
	return vk.Lot(it.LotCode), nil
}

func (s *Service) receiveLine(ctx context.Context, tx *store.Store, o *model.Order, it model.OrderItem) error {
	key, err := ensureBuyerLot(ctx, tx, o.BuyerBranchID, it)
	if err != nil {
		return fmt.Errorf("preparing %s at branch %s: %w", it.Product(), o.BuyerBranchID, err)
	}
	_, err = tx.ApplyMovement(ctx, key, it.Quantity, model.MovementTransferIn, o.ID, "transfer "+o.Number)
	return err
}

// ensureBuyerLot finds or creates the buyer-side nodes for a line. The
// seller's ids are tried first, then the buyer's spelling of the names.
func ensureBuyerLot(ctx context.Context, tx *store.Store, buyerID string, it model.OrderItem) (model.LotKey, error) {
	brandName := firstNonEmpty(it.BrandName, it.BrandID)
	brandID := it.BrandID
	ok, err := tx.BrandExists(ctx, buyerID, brandID)
	if err != nil {
		return model.LotKey{}, err
	}
	if !ok {
		brandID = tx.Resolver().ResolveBrandID(ctx, buyerID, brandName)
		if ok, err = tx.BrandExists(ctx, buyerID, brandID); err != nil {
			return model.LotKey{}, err
		}
		if !ok {
			if _, err := tx.EnsureBrandID(ctx, buyerID, brandID, brandName); err != nil {
				return model.LotKey{}, err
			}
		}
	}

	modelName := firstNonEmpty(it.ModelName, it.ModelID)
	modelID := it.ModelID
	if ok, err = tx.ModelExists(ctx, buyerID, brandID, modelID); err != nil {
		return model.LotKey{}, err
	}
	if !ok {
		modelID = tx.Resolver().ResolveModelID(ctx, buyerID, brandID, modelName)
		if ok, err = tx.ModelExists(ctx, buyerID, brandID, modelID); err != nil {
			return model.LotKey{}, err
		}
		if !ok {
			if _, err := tx.EnsureModelID(ctx, buyerID, brandID, modelID, modelName); err != nil {
				return model.LotKey{}, err
			}
		}
	}

	vk := model.VariantKey{BranchID: buyerID, BrandID: brandID, ModelID: modelID, VariantID: it.VariantID}
	if _, err := tx.GetVariant(ctx, vk); err != nil {
		var nf *model.NotFoundError
		if !errors.As(err, &nf) {
			return model.LotKey{}, err
		}
		v, err := tx.FindVariant(ctx, buyerID, brandID, modelID, it.Specification)
		if errors.As(err, &nf) {
			v, err = tx.EnsureVariant(ctx, buyerID, brandID, modelID, store.VariantInput{
				ID:        it.VariantID,
				Spec:      it.Specification,
				ListPrice: it.UnitPrice,
			})
		}
		if err != nil {
			return model.LotKey{}, err
		}
		vk.VariantID = v.ID
	}

	key := vk.Lot(it.LotCode)
	if _, err := tx.GetLot(ctx, key); err != nil {
		var nf *model.NotFoundError
		if !errors.As(err, &nf) {
			return model.LotKey{}, err
		}
		if _, err := tx.EnsureLot(ctx, key, store.LotInput{PromoPrice: it.PromoPrice}); err != nil {
			return model.LotKey{}, err
		}
	}
	return key, nil
}

// transition moves an order along st in one transaction: apply (if any),
// the status change and the workflow event commit together.
func (s *Service) transition(ctx context.Context, orderID string, st step, reason string, apply func(ctx context.Context, tx *store.Store, o *model.Order) error) (*model.Order, error) {
	var (
		order *model.Order
		from  model.Status
		noop  bool
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx *store.Store) error {
		o, err := getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if noop, err = st.check(o); err != nil || noop {
			return err
		}

		if apply != nil {
			if err := apply(ctx, tx, o); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		from = o.Status
		o.Status = st.to
		o.StoredStatus = st.to
		o.UpdatedAt = now
		switch st.to {
		case model.StatusApproved:
			o.ApprovedAt = &now
		case model.StatusShipped:
			o.ShippedAt = &now
		case model.StatusReceived:
			o.ReceivedAt = &now
			o.ClosedAt = &now
		case model.StatusRejected, model.StatusCancelled:
			o.CancelReason = reason
			o.ClosedAt = &now
		}
		if err := tx.Docs().Set(ctx, orderRef(o.ID), o); err != nil {
			return fmt.Errorf("updating order: %w", err)
		}

		actor := o.SellerBranchID
		if st.byBuyer {
			actor = o.BuyerBranchID
		}
		_, err = tx.Ledger().RecordEvent(ctx, model.OrderEvent{
			OrderID:        o.ID,
			OrderNumber:    o.Number,
			Event:          st.event,
			BuyerBranchID:  o.BuyerBranchID,
			SellerBranchID: o.SellerBranchID,
			ActorBranchID:  actor,
			From:           from,
			To:             st.to,
			Reason:         reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if noop {
		s.log.Debug("transfer already settled", "order", order.ID, "status", order.Status, "event", st.event)
		return order, nil
	}

	s.log.Info("order transition", "event", st.event, "order", order.ID, "number", order.Number, "from", from, "to", order.Status)
	s.metrics.Transition(st.event)
	s.announce(ctx, order, st)
	return order, nil
}

// announce notifies the counterparty of a transition.
func (s *Service) announce(ctx context.Context, o *model.Order, st step) {
	ev := notify.Event{Link: orderLink(o.ID), OrderID: o.ID, Event: st.event}
	switch st.to {
	case model.StatusApproved:
		ev.BranchID = o.BuyerBranchID
		ev.Title = "Transfer approved"
		ev.Message = fmt.Sprintf("%s approved %s.", o.SellerBranchName, o.Number)
	case model.StatusRejected:
		ev.BranchID = o.BuyerBranchID
		ev.Title = "Transfer rejected"
		ev.Message = fmt.Sprintf("%s rejected %s: %s", o.SellerBranchName, o.Number, o.CancelReason)
	case model.StatusShipped:
		ev.BranchID = o.BuyerBranchID
		ev.Title = "Transfer shipped"
		ev.Message = fmt.Sprintf("%s shipped %d units for %s.", o.SellerBranchName, o.TotalQuantity(), o.Number)
	case model.StatusReceived:
		ev.BranchID = o.SellerBranchID
		ev.Title = "Transfer received"
		ev.Message = fmt.Sprintf("%s received %s.", o.BuyerBranchName, o.Number)
	case model.StatusCancelled:
		ev.BranchID = o.SellerBranchID
		ev.Title = "Transfer cancelled"
		ev.Message = fmt.Sprintf("%s cancelled %s: %s", o.BuyerBranchName, o.Number, o.CancelReason)
	default:
		return
	}
	s.emitter.Emit(ctx, ev)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
