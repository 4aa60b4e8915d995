package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/canonical"
	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

// BrandExists reports whether the brand node exists in the branch.
func (s *Store) BrandExists(ctx context.Context, branchID, brandID string) (bool, error) {
	if validateID("branch_id", branchID) != nil || validateID("brand_id", brandID) != nil {
		return false, nil
	}
	return s.docs.Exists(ctx, brandRef(branchID, brandID))
}

// ModelExists reports whether the model node exists under the brand.
func (s *Store) ModelExists(ctx context.Context, branchID, brandID, modelID string) (bool, error) {
	if validateID("branch_id", branchID) != nil || validateID("brand_id", brandID) != nil || validateID("model_id", modelID) != nil {
		return false, nil
	}
	return s.docs.Exists(ctx, modelRef(branchID, brandID, modelID))
}

// EnsureBrand resolves name against the branch's existing brands and
// creates the brand if none matches.
func (s *Store) EnsureBrand(ctx context.Context, branchID, name string) (*model.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Field: "brand", Reason: "name required"}
	}
	return s.EnsureBrandID(ctx, branchID, s.resolver.ResolveBrandID(ctx, branchID, name), name)
}

// EnsureBrandID creates the brand under a known id if absent, or updates
// its display name if it differs. Nothing is written when nothing changed.
func (s *Store) EnsureBrandID(ctx context.Context, branchID, brandID, name string) (*model.Brand, error) {
	if err := validateID("branch_id", branchID); err != nil {
		return nil, err
	}
	if err := validateID("brand_id", brandID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = brandID
	}

	ref := brandRef(branchID, brandID)
	var b model.Brand
	err := s.docs.Get(ctx, ref, &b)
	if errors.Is(err, docstore.ErrNotFound) {
		if _, err := s.GetBranch(ctx, branchID); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		b = model.Brand{ID: brandID, Name: name, CreatedAt: now, UpdatedAt: now}
		err = s.docs.Create(ctx, ref, b)
		if err == nil {
			s.log.Info("brand created", "branch", branchID, "brand", brandID, "name", name)
			return &b, nil
		}
		if !errors.Is(err, docstore.ErrExists) {
			return nil, fmt.Errorf("creating brand: %w", err)
		}
		// Lost a race with a concurrent create; continue as an update.
		err = s.docs.Get(ctx, ref, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("getting brand: %w", err)
	}

	if b.Name != name {
		now := s.now().UTC()
		if err := s.docs.Update(ctx, ref, map[string]any{"name": name, "updated_at": now}); err != nil {
			return nil, fmt.Errorf("renaming brand: %w", err)
		}
		s.log.Info("brand renamed", "branch", branchID, "brand", brandID, "from", b.Name, "to", name)
		b.Name = name
		b.UpdatedAt = now
	}
	return &b, nil
}

// GetBrand returns a brand node.
func (s *Store) GetBrand(ctx context.Context, branchID, brandID string) (*model.Brand, error) {
	if err := validateID("brand_id", brandID); err != nil {
		return nil, err
	}
	var b model.Brand
	if err := s.docs.Get(ctx, brandRef(branchID, brandID), &b); err != nil {
		return nil, notFound(err, "brand", brandID)
	}
	return &b, nil
}

// ListBrands returns a branch's brands ordered by name.
func (s *Store) ListBrands(ctx context.Context, branchID string) ([]model.Brand, error) {
	snaps, err := s.docs.Query(ctx, docstore.Query{Collection: brandsCollection(branchID), OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("listing brands: %w", err)
	}
	brands := make([]model.Brand, 0, len(snaps))
	for _, snap := range snaps {
		var b model.Brand
		if err := snap.DataTo(&b); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, nil
}

// EnsureModel resolves name under the brand and creates the model if none matches.
func (s *Store) EnsureModel(ctx context.Context, branchID, brandID, name string) (*model.ProductModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Field: "model", Reason: "name required"}
	}
	return s.EnsureModelID(ctx, branchID, brandID, s.resolver.ResolveModelID(ctx, branchID, brandID, name), name)
}

// EnsureModelID is EnsureBrandID one level down. The brand must exist.
func (s *Store) EnsureModelID(ctx context.Context, branchID, brandID, modelID, name string) (*model.ProductModel, error) {
	if err := validateID("branch_id", branchID); err != nil {
		return nil, err
	}
	if err := validateID("brand_id", brandID); err != nil {
		return nil, err
	}
	if err := validateID("model_id", modelID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = modelID
	}

	ref := modelRef(branchID, brandID, modelID)
	var m model.ProductModel
	err := s.docs.Get(ctx, ref, &m)
	if errors.Is(err, docstore.ErrNotFound) {
		if _, err := s.GetBrand(ctx, branchID, brandID); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		m = model.ProductModel{ID: modelID, BrandID: brandID, Name: name, CreatedAt: now, UpdatedAt: now}
		err = s.docs.Create(ctx, ref, m)
		if err == nil {
			s.log.Info("model created", "branch", branchID, "brand", brandID, "model", modelID, "name", name)
			return &m, nil
		}
		if !errors.Is(err, docstore.ErrExists) {
			return nil, fmt.Errorf("creating model: %w", err)
		}
		err = s.docs.Get(ctx, ref, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("getting model: %w", err)
	}

	if m.Name != name {
		now := s.now().UTC()
		if err := s.docs.Update(ctx, ref, map[string]any{"name": name, "updated_at": now}); err != nil {
			return nil, fmt.Errorf("renaming model: %w", err)
		}
		m.Name = name
		m.UpdatedAt = now
	}
	return &m, nil
}

// GetModel returns a model node.
func (s *Store) GetModel(ctx context.Context, branchID, brandID, modelID string) (*model.ProductModel, error) {
	if err := validateID("model_id", modelID); err != nil {
		return nil, err
	}
	var m model.ProductModel
	if err := s.docs.Get(ctx, modelRef(branchID, brandID, modelID), &m); err != nil {
		return nil, notFound(err, "model", modelID)
	}
	return &m, nil
}

// ListModels returns a brand's models ordered by name.
func (s *Store) ListModels(ctx context.Context, branchID, brandID string) ([]model.ProductModel, error) {
	snaps, err := s.docs.Query(ctx, docstore.Query{Collection: modelsCollection(branchID, brandID), OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	models := make([]model.ProductModel, 0, len(snaps))
	for _, snap := range snaps {
		var m model.ProductModel
		if err := snap.DataTo(&m); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// VariantInput describes a variant to ensure. An empty ID reuses a variant
// with the same normalized spec, or derives the id from the spec.
type VariantInput struct {
	ID        string
	Spec      string
	ListPrice *decimal.Decimal
}

// EnsureVariant creates the variant if absent. An existing variant only
// has its list price updated; its spec is never renamed.
func (s *Store) EnsureVariant(ctx context.Context, branchID, brandID, modelID string, in VariantInput) (*model.Variant, error) {
	in.Spec = strings.TrimSpace(in.Spec)
	if in.ID == "" && in.Spec == "" {
		return nil, &model.ValidationError{Field: "spec", Reason: "variant id or spec required"}
	}
	if in.ListPrice != nil && in.ListPrice.IsNegative() {
		return nil, &model.ValidationError{Field: "list_price", Reason: "must not be negative"}
	}

	if in.ID == "" {
		id, err := s.matchVariant(ctx, branchID, brandID, modelID, in.Spec)
		if err != nil {
			return nil, err
		}
		in.ID = id
	}

	key := model.VariantKey{BranchID: branchID, BrandID: brandID, ModelID: modelID, VariantID: in.ID}
	if err := validateVariantKey(key); err != nil {
		return nil, err
	}

	ref := variantRef(key)
	var v model.Variant
	err := s.docs.Get(ctx, ref, &v)
	if errors.Is(err, docstore.ErrNotFound) {
		if _, err := s.GetModel(ctx, branchID, brandID, modelID); err != nil {
			return nil, err
		}
		spec := in.Spec
		if spec == "" {
			spec = in.ID
		}
		now := s.now().UTC()
		v = model.Variant{ID: in.ID, Spec: spec, ListPrice: in.ListPrice, CreatedAt: now, UpdatedAt: now}
		err = s.docs.Create(ctx, ref, v)
		if err == nil {
			s.log.Info("variant created", "branch", branchID, "brand", brandID, "model", modelID, "variant", in.ID, "spec", spec)
			return &v, nil
		}
		if !errors.Is(err, docstore.ErrExists) {
			return nil, fmt.Errorf("creating variant: %w", err)
		}
		err = s.docs.Get(ctx, ref, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("getting variant: %w", err)
	}

	if in.Spec != "" && in.Spec != v.Spec {
		s.log.Debug("variant spec differs, keeping stored spec", "variant", in.ID, "stored", v.Spec, "given", in.Spec)
	}
	if in.ListPrice != nil && (v.ListPrice == nil || !v.ListPrice.Equal(*in.ListPrice)) {
		now := s.now().UTC()
		if err := s.docs.Update(ctx, ref, map[string]any{"list_price": in.ListPrice, "updated_at": now}); err != nil {
			return nil, fmt.Errorf("updating variant price: %w", err)
		}
		v.ListPrice = in.ListPrice
		v.UpdatedAt = now
	}
	return &v, nil
}

// matchVariant finds a variant whose spec normalizes like spec, or derives
// a new id from the spec.
func (s *Store) matchVariant(ctx context.Context, branchID, brandID, modelID, spec string) (string, error) {
	slug := canonical.Normalize(spec)
	if slug == "" {
		return "", &model.ValidationError{Field: "spec", Reason: "spec has no letters or digits"}
	}

	variants, err := s.ListVariants(ctx, branchID, brandID, modelID)
	if err != nil {
		return "", err
	}
	for _, v := range variants {
		if canonical.Normalize(v.Spec) == slug {
			return v.ID, nil
		}
	}
	return slug, nil
}

// FindVariant returns the variant of a model whose spec normalizes like
// spec, or NotFoundError.
func (s *Store) FindVariant(ctx context.Context, branchID, brandID, modelID, spec string) (*model.Variant, error) {
	slug := canonical.Normalize(spec)
	variants, err := s.ListVariants(ctx, branchID, brandID, modelID)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		if slug != "" && canonical.Normalize(v.Spec) == slug {
			return &v, nil
		}
	}
	return nil, &model.NotFoundError{Kind: "variant", ID: spec}
}

// SetListPrice sets or (with nil) clears a variant's list price.
func (s *Store) SetListPrice(ctx context.Context, key model.VariantKey, price *decimal.Decimal) error {
	if err := validateVariantKey(key); err != nil {
		return err
	}
	if price != nil && price.IsNegative() {
		return &model.ValidationError{Field: "list_price", Reason: "must not be negative"}
	}
	err := s.docs.Update(ctx, variantRef(key), map[string]any{"list_price": price, "updated_at": s.now().UTC()})
	return notFound(err, "variant", key.VariantID)
}

// GetVariant returns a variant node.
func (s *Store) GetVariant(ctx context.Context, key model.VariantKey) (*model.Variant, error) {
	if err := validateVariantKey(key); err != nil {
		return nil, err
	}
	var v model.Variant
	if err := s.docs.Get(ctx, variantRef(key), &v); err != nil {
		return nil, notFound(err, "variant", key.VariantID)
	}
	return &v, nil
}

// ListVariants returns a model's variants ordered by spec.
func (s *Store) ListVariants(ctx context.Context, branchID, brandID, modelID string) ([]model.Variant, error) {
	snaps, err := s.docs.Query(ctx, docstore.Query{Collection: variantsCollection(branchID, brandID, modelID), OrderBy: "spec"})
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	variants := make([]model.Variant, 0, len(snaps))
	for _, snap := range snaps {
		var v model.Variant
		if err := snap.DataTo(&v); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}
