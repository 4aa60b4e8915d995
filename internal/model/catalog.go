package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Brand is the top of a branch's inventory tree.
type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductModel is a model line under a brand.
type ProductModel struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brand_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Variant is one size/specification combination of a model.
type Variant struct {
	ID        string           `json:"id"`
	Spec      string           `json:"spec"`
	ListPrice *decimal.Decimal `json:"list_price,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Lot is a production batch of a variant (a DOT code for tires). It is the
// only node whose quantity changes, and every change is ledgered.
type Lot struct {
	Code       string           `json:"code"`
	Quantity   int              `json:"quantity"`
	PromoPrice *decimal.Decimal `json:"promo_price,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// VariantKey addresses a variant inside a branch.
type VariantKey struct {
	BranchID  string `json:"branch_id"`
	BrandID   string `json:"brand_id"`
	ModelID   string `json:"model_id"`
	VariantID string `json:"variant_id"`
}

// LotKey addresses a lot inside a branch.
type LotKey struct {
	VariantKey
	LotCode string `json:"lot_code"`
}

// Lot returns the key of a lot under the variant.
func (k VariantKey) Lot(code string) LotKey {
	return LotKey{VariantKey: k, LotCode: code}
}

// LotView is a lot joined with its variant's display fields.
type LotView struct {
	LotKey
	Spec       string           `json:"spec"`
	ListPrice  *decimal.Decimal `json:"list_price,omitempty"`
	Quantity   int              `json:"quantity"`
	PromoPrice *decimal.Decimal `json:"promo_price,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// InventoryRow is one product (brand + model) with per-branch detail.
// Rows from several branches are merged by concatenating Branches, never
// by summing their counts.
type InventoryRow struct {
	ProductID string        `json:"product_id"`
	BrandID   string        `json:"brand_id"`
	BrandName string        `json:"brand_name"`
	ModelID   string        `json:"model_id"`
	ModelName string        `json:"model_name"`
	Branches  []BranchStock `json:"branches"`
}

// TotalQuantity sums the quantity across all branches of the row.
func (r InventoryRow) TotalQuantity() int {
	total := 0
	for _, b := range r.Branches {
		total += b.Quantity()
	}
	return total
}

// BranchStock is one branch's holdings of a product.
type BranchStock struct {
	BranchID   string         `json:"branch_id"`
	BranchName string         `json:"branch_name"`
	Variants   []VariantStock `json:"variants"`
}

// Quantity sums the branch's lots of the product.
func (b BranchStock) Quantity() int {
	total := 0
	for _, v := range b.Variants {
		for _, l := range v.Lots {
			total += l.Quantity
		}
	}
	return total
}

// VariantStock is a variant and its lots.
type VariantStock struct {
	VariantID string           `json:"variant_id"`
	Spec      string           `json:"spec"`
	ListPrice *decimal.Decimal `json:"list_price,omitempty"`
	Lots      []Lot            `json:"lots"`
}

// ProductID builds the id that groups inventory rows across branches.
func ProductID(brandID, modelID string) string {
	return brandID + "__" + modelID
}
