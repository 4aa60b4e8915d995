package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the canonical status of a transfer order.
type Status string

// Canonical statuses.
const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusShipped   Status = "shipped"
	StatusReceived  Status = "received"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Legacy statuses found on older records.
const (
	statusConfirmed Status = "confirmed"
	statusDelivered Status = "delivered"
)

// Canonical maps legacy aliases onto the canonical status set.
func (s Status) Canonical() Status {
	switch s {
	case statusConfirmed:
		return StatusApproved
	case statusDelivered:
		return StatusShipped
	}
	return s
}

// Valid reports whether s (after alias mapping) is a known status.
func (s Status) Valid() bool {
	switch s.Canonical() {
	case StatusRequested, StatusApproved, StatusShipped, StatusReceived, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	switch s.Canonical() {
	case StatusReceived, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus parses a status string, accepting legacy aliases.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v))).Canonical()
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Reason: "unknown status " + v}
	}
	return s, nil
}

// OrderItem is one line of a transfer order. Ids are the seller's canonical
// ids at creation time; names travel along so the buyer side can be created.
type OrderItem struct {
	BrandID       string           `json:"brand_id"`
	BrandName     string           `json:"brand_name"`
	ModelID       string           `json:"model_id"`
	ModelName     string           `json:"model_name"`
	VariantID     string           `json:"variant_id"`
	Specification string           `json:"specification"`
	LotCode       string           `json:"lot_code"`
	Quantity      int              `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	PromoPrice    *decimal.Decimal `json:"promo_price,omitempty"`
}

// Product returns a human-readable product label for diagnostics.
func (i OrderItem) Product() string {
	brand := i.BrandName
	if brand == "" {
		brand = i.BrandID
	}
	m := i.ModelName
	if m == "" {
		m = i.ModelID
	}
	return strings.TrimSpace(brand + " " + m)
}

// Order is a cross-branch transfer request.
type Order struct {
	ID               string      `json:"id"`
	Number           string      `json:"number"`
	BuyerBranchID    string      `json:"buyer_branch_id"`
	BuyerBranchName  string      `json:"buyer_branch_name"`
	SellerBranchID   string      `json:"seller_branch_id"`
	SellerBranchName string      `json:"seller_branch_name"`
	Items            []OrderItem `json:"items"`
	Status           Status      `json:"status"`
	// StoredStatus is the status as read from storage, before legacy
	// aliases are mapped. Not persisted.
	StoredStatus     Status      `json:"-"`
	CancelReason     string      `json:"cancel_reason,omitempty"`
	Note             string      `json:"note,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	ApprovedAt       *time.Time  `json:"approved_at,omitempty"`
	ShippedAt        *time.Time  `json:"shipped_at,omitempty"`
	ReceivedAt       *time.Time  `json:"received_at,omitempty"`
	ClosedAt         *time.Time  `json:"closed_at,omitempty"`
}

// TotalQuantity sums the quantities of all lines.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, it := range o.Items {
		total += it.Quantity
	}
	return total
}
