package model

import "time"

// MovementKind classifies a stock movement.
type MovementKind string

// Movement kinds.
const (
	MovementInbound     MovementKind = "inbound"
	MovementOutbound    MovementKind = "outbound"
	MovementAdjustment  MovementKind = "adjustment"
	MovementTransferIn  MovementKind = "transfer_in"
	MovementTransferOut MovementKind = "transfer_out"
)

// Event returns the workflow-event tag derived from the kind.
func (k MovementKind) Event() string {
	switch k {
	case MovementInbound:
		return "stock.inbound"
	case MovementOutbound:
		return "stock.outbound"
	case MovementAdjustment:
		return "stock.adjustment"
	case MovementTransferIn:
		return "transfer.in"
	case MovementTransferOut:
		return "transfer.out"
	}
	return "stock.unknown"
}

// Movement is one immutable stock ledger row.
type Movement struct {
	ID        string       `json:"id,omitempty"`
	BranchID  string       `json:"branch_id"`
	Kind      MovementKind `json:"kind"`
	Event     string       `json:"event"`
	Delta     int          `json:"delta"`
	BrandID   string       `json:"brand_id,omitempty"`
	ModelID   string       `json:"model_id,omitempty"`
	VariantID string       `json:"variant_id,omitempty"`
	LotCode   string       `json:"lot_code,omitempty"`
	OrderID   string       `json:"order_id,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Order workflow events.
const (
	EventOrderRequested = "order.requested"
	EventOrderApproved  = "order.approved"
	EventOrderRejected  = "order.rejected"
	EventOrderCancelled = "order.cancelled"
	EventOrderShipped   = "order.shipped"
	EventOrderReceived  = "order.received"
)

// OrderEvent is one immutable row of the workflow-status sub-ledger. It is
// tagged to both branches of the order.
type OrderEvent struct {
	ID             string    `json:"id,omitempty"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number,omitempty"`
	Event          string    `json:"event"`
	BuyerBranchID  string    `json:"buyer_branch_id"`
	SellerBranchID string    `json:"seller_branch_id"`
	ActorBranchID  string    `json:"actor_branch_id,omitempty"`
	From           Status    `json:"from,omitempty"`
	To             Status    `json:"to"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
