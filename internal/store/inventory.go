package store

import (
	"context"
	"sort"

	"github.com/erazemk/zaloga/internal/model"
)

// FetchOptions controls inventory reads.
type FetchOptions struct {
	// IncludeEmpty keeps zero-quantity lots and the variants and products
	// left without lots.
	IncludeEmpty bool
}

// FetchInventoryForBranch returns a branch's stock grouped by product
// (brand + model), ordered by brand then model name.
func (s *Store) FetchInventoryForBranch(ctx context.Context, branchID string, opts FetchOptions) ([]model.InventoryRow, error) {
	branch, err := s.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	brands, err := s.ListBrands(ctx, branchID)
	if err != nil {
		return nil, err
	}

	var rows []model.InventoryRow
	for _, brand := range brands {
		models, err := s.ListModels(ctx, branchID, brand.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range models {
			stock, err := s.branchStock(ctx, branch, brand.ID, m.ID, opts)
			if err != nil {
				return nil, err
			}
			if len(stock.Variants) == 0 && !opts.IncludeEmpty {
				continue
			}
			rows = append(rows, model.InventoryRow{
				ProductID: model.ProductID(brand.ID, m.ID),
				BrandID:   brand.ID,
				BrandName: brand.Name,
				ModelID:   m.ID,
				ModelName: m.Name,
				Branches:  []model.BranchStock{stock},
			})
		}
	}
	return rows, nil
}

func (s *Store) branchStock(ctx context.Context, branch *model.Branch, brandID, modelID string, opts FetchOptions) (model.BranchStock, error) {
	stock := model.BranchStock{BranchID: branch.ID, BranchName: branch.Name}

	variants, err := s.ListVariants(ctx, branch.ID, brandID, modelID)
	if err != nil {
		return stock, err
	}
	for _, v := range variants {
		lots, err := s.lots(ctx, model.VariantKey{BranchID: branch.ID, BrandID: brandID, ModelID: modelID, VariantID: v.ID})
		if err != nil {
			return stock, err
		}
		if !opts.IncludeEmpty {
			kept := lots[:0]
			for _, l := range lots {
				if l.Quantity > 0 {
					kept = append(kept, l)
				}
			}
			lots = kept
			if len(lots) == 0 {
				continue
			}
		}
		stock.Variants = append(stock.Variants, model.VariantStock{
			VariantID: v.ID,
			Spec:      v.Spec,
			ListPrice: v.ListPrice,
			Lots:      lots,
		})
	}
	return stock, nil
}

// FetchInventoryForBranches fetches each branch and merges rows sharing a
// product id by concatenating their per-branch detail. Counts are never
// summed across branches; InventoryRow.TotalQuantity reports the total.
func (s *Store) FetchInventoryForBranches(ctx context.Context, branchIDs []string, opts FetchOptions) ([]model.InventoryRow, error) {
	byProduct := make(map[string]*model.InventoryRow)
	var order []string

	for _, branchID := range branchIDs {
		rows, err := s.FetchInventoryForBranch(ctx, branchID, opts)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if merged, ok := byProduct[row.ProductID]; ok {
				merged.Branches = append(merged.Branches, row.Branches...)
				continue
			}
			r := row
			byProduct[row.ProductID] = &r
			order = append(order, row.ProductID)
		}
	}

	merged := make([]model.InventoryRow, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byProduct[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].BrandName != merged[j].BrandName {
			return merged[i].BrandName < merged[j].BrandName
		}
		if merged[i].ModelName != merged[j].ModelName {
			return merged[i].ModelName < merged[j].ModelName
		}
		return merged[i].ProductID < merged[j].ProductID
	})
	return merged, nil
}
