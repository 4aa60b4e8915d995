package canonical

import (
	"context"
	"log/slog"
	"strings"
)

// Lookup reports whether brand and model nodes exist in a branch.
type Lookup interface {
	BrandExists(ctx context.Context, branchID, brandID string) (bool, error)
	ModelExists(ctx context.Context, branchID, brandID, modelID string) (bool, error)
}

// Resolver finds the existing node id for a free-typed brand or model name
// before a new one is made up, so spelling drift does not duplicate nodes.
type Resolver struct {
	lookup Lookup
	log    *slog.Logger
}

// NewResolver returns a resolver over lookup. A nil logger uses slog.Default.
func NewResolver(lookup Lookup, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{lookup: lookup, log: log}
}

// IDs is a resolved brand/model pair.
type IDs struct {
	BrandID string
	ModelID string
}

// ResolveBrandID returns the id of an existing brand matching raw, trying
// raw, UPPER(raw), Normalize(raw) and lower(raw) in that order. When none
// exists it returns UPPER(raw) as the new canonical id.
func (r *Resolver) ResolveBrandID(ctx context.Context, branchID, raw string) string {
	raw = strings.TrimSpace(raw)
	for _, c := range candidates(raw) {
		ok, err := r.lookup.BrandExists(ctx, branchID, c)
		if err != nil {
			r.log.Debug("brand lookup failed", "branch", branchID, "candidate", c, "error", err)
			continue
		}
		if ok {
			return c
		}
	}
	return strings.ToUpper(raw)
}

// ResolveModelID is ResolveBrandID scoped under a brand. The fallback for
// an unknown model is its slug; brand ids stay upper-case.
func (r *Resolver) ResolveModelID(ctx context.Context, branchID, brandID, raw string) string {
	raw = strings.TrimSpace(raw)
	for _, c := range candidates(raw) {
		ok, err := r.lookup.ModelExists(ctx, branchID, brandID, c)
		if err != nil {
			r.log.Debug("model lookup failed", "branch", branchID, "brand", brandID, "candidate", c, "error", err)
			continue
		}
		if ok {
			return c
		}
	}
	if slug := Normalize(raw); slug != "" {
		return slug
	}
	return strings.ToUpper(raw)
}

// ResolveCanonicalIDs resolves the brand, then the model under it.
func (r *Resolver) ResolveCanonicalIDs(ctx context.Context, branchID, brandRaw, modelRaw string) IDs {
	brandID := r.ResolveBrandID(ctx, branchID, brandRaw)
	return IDs{
		BrandID: brandID,
		ModelID: r.ResolveModelID(ctx, branchID, brandID, modelRaw),
	}
}

func candidates(raw string) []string {
	all := []string{raw, strings.ToUpper(raw), Normalize(raw), strings.ToLower(raw)}
	out := make([]string, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, c := range all {
		if c == "" || strings.Contains(c, "/") || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
