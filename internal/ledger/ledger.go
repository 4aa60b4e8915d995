// Package ledger is the append-only record of stock quantity changes and
// of transfer-order workflow events.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

// Ledger collections.
var (
	MovementsCollection = docstore.Collection("stockMovements")
	EventsCollection    = docstore.Collection("orderEvents")
)

// Ledger appends movement and event rows. Rows are never updated or
// deleted; the documents table enforces this with triggers.
type Ledger struct {
	docs docstore.Store
	log  *slog.Logger
}

// New returns a ledger writing to docs. A nil logger uses slog.Default.
func New(docs docstore.Store, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{docs: docs, log: log}
}

// WithTx returns a ledger whose appends join the transaction tx.
func (l *Ledger) WithTx(tx docstore.Store) *Ledger {
	return &Ledger{docs: tx, log: l.log}
}

// Record appends a movement. A zero delta records nothing and returns nil.
func (l *Ledger) Record(ctx context.Context, m model.Movement) (*model.Movement, error) {
	if m.Delta == 0 {
		return nil, nil
	}
	if m.BranchID == "" {
		return nil, &model.ValidationError{Field: "branch_id", Reason: "required"}
	}
	if m.Kind == "" {
		return nil, &model.ValidationError{Field: "kind", Reason: "required"}
	}
	m.ID = ""
	m.Event = m.Kind.Event()

	snap, err := l.docs.Add(ctx, MovementsCollection, m)
	if err != nil {
		return nil, fmt.Errorf("recording movement: %w", err)
	}
	if err := snap.DataTo(&m); err != nil {
		return nil, err
	}

	l.log.Debug("movement recorded", "branch", m.BranchID, "kind", m.Kind, "delta", m.Delta,
		"lot", m.LotCode, "order", m.OrderID)
	return &m, nil
}

// RecordLot appends a movement against a lot.
func (l *Ledger) RecordLot(ctx context.Context, key model.LotKey, kind model.MovementKind, delta int, orderID, reason string) (*model.Movement, error) {
	return l.Record(ctx, model.Movement{
		BranchID:  key.BranchID,
		Kind:      kind,
		Delta:     delta,
		BrandID:   key.BrandID,
		ModelID:   key.ModelID,
		VariantID: key.VariantID,
		LotCode:   key.LotCode,
		OrderID:   orderID,
		Reason:    reason,
	})
}

// RecordEvent appends a workflow event to the order sub-ledger.
func (l *Ledger) RecordEvent(ctx context.Context, ev model.OrderEvent) (*model.OrderEvent, error) {
	if ev.OrderID == "" {
		return nil, &model.ValidationError{Field: "order_id", Reason: "required"}
	}
	ev.ID = ""

	snap, err := l.docs.Add(ctx, EventsCollection, ev)
	if err != nil {
		return nil, fmt.Errorf("recording order event: %w", err)
	}
	if err := snap.DataTo(&ev); err != nil {
		return nil, err
	}

	l.log.Debug("order event recorded", "order", ev.OrderID, "event", ev.Event,
		"buyer", ev.BuyerBranchID, "seller", ev.SellerBranchID)
	return &ev, nil
}

// MovementFilter selects movements. Empty fields do not filter.
type MovementFilter struct {
	BranchID string
	OrderID  string
	Lot      *model.LotKey
	Kind     model.MovementKind
	From     time.Time
	To       time.Time
	Limit    int
}

// Movements returns movements matching f, oldest first.
func (l *Ledger) Movements(ctx context.Context, f MovementFilter) ([]model.Movement, error) {
	q := docstore.Query{
		Collection:  MovementsCollection,
		CreatedFrom: f.From,
		CreatedTo:   f.To,
		Limit:       f.Limit,
	}
	if f.BranchID != "" {
		q.Filters = append(q.Filters, docstore.Where("branch_id", docstore.Eq, f.BranchID))
	}
	if f.OrderID != "" {
		q.Filters = append(q.Filters, docstore.Where("order_id", docstore.Eq, f.OrderID))
	}
	if f.Kind != "" {
		q.Filters = append(q.Filters, docstore.Where("kind", docstore.Eq, string(f.Kind)))
	}
	if f.Lot != nil {
		q.Filters = append(q.Filters,
			docstore.Where("branch_id", docstore.Eq, f.Lot.BranchID),
			docstore.Where("brand_id", docstore.Eq, f.Lot.BrandID),
			docstore.Where("model_id", docstore.Eq, f.Lot.ModelID),
			docstore.Where("variant_id", docstore.Eq, f.Lot.VariantID),
			docstore.Where("lot_code", docstore.Eq, f.Lot.LotCode),
		)
	}

	snaps, err := l.docs.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}

	movements := make([]model.Movement, 0, len(snaps))
	for _, s := range snaps {
		var m model.Movement
		if err := s.DataTo(&m); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

// LotBalance sums every delta ever recorded against the lot.
func (l *Ledger) LotBalance(ctx context.Context, key model.LotKey) (int, error) {
	movements, err := l.Movements(ctx, MovementFilter{Lot: &key})
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, m := range movements {
		sum += m.Delta
	}
	return sum, nil
}

// EventsForOrder returns the workflow events of one order, oldest first.
func (l *Ledger) EventsForOrder(ctx context.Context, orderID string) ([]model.OrderEvent, error) {
	return l.events(ctx, docstore.Query{
		Collection: EventsCollection,
		Filters:    []docstore.Filter{docstore.Where("order_id", docstore.Eq, orderID)},
	})
}

// EventsForBranch returns the events tagged to a branch, as buyer or
// seller, created in [from, to). Zero bounds are open.
func (l *Ledger) EventsForBranch(ctx context.Context, branchID string, from, to time.Time) ([]model.OrderEvent, error) {
	var all []model.OrderEvent
	for _, field := range []string{"buyer_branch_id", "seller_branch_id"} {
		evs, err := l.events(ctx, docstore.Query{
			Collection:  EventsCollection,
			Filters:     []docstore.Filter{docstore.Where(field, docstore.Eq, branchID)},
			CreatedFrom: from,
			CreatedTo:   to,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, evs...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (l *Ledger) events(ctx context.Context, q docstore.Query) ([]model.OrderEvent, error) {
	snaps, err := l.docs.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing order events: %w", err)
	}

	events := make([]model.OrderEvent, 0, len(snaps))
	for _, s := range snaps {
		var ev model.OrderEvent
		if err := s.DataTo(&ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
