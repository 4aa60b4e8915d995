package canonical

import (
	"context"
	"errors"
	"testing"
)

type fakeLookup struct {
	brands map[string]bool
	models map[string]bool
	fail   bool
	calls  []string
}

func (f *fakeLookup) BrandExists(_ context.Context, branchID, brandID string) (bool, error) {
	f.calls = append(f.calls, brandID)
	if f.fail {
		return false, errors.New("store down")
	}
	return f.brands[branchID+"/"+brandID], nil
}

func (f *fakeLookup) ModelExists(_ context.Context, branchID, brandID, modelID string) (bool, error) {
	f.calls = append(f.calls, modelID)
	if f.fail {
		return false, errors.New("store down")
	}
	return f.models[branchID+"/"+brandID+"/"+modelID], nil
}

func TestResolveBrandIDPrefersExistingNode(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		raw      string
		want     string
	}{
		{"literal", "Michelin", "Michelin", "Michelin"},
		{"upper", "MICHELIN", "michelin", "MICHELIN"},
		{"slug", "bridge-stone", "Bridge Stone!!", "bridge-stone"},
		{"lower", "goodyear", "GoodYear", "goodyear"},
		{"fallback upper", "", "Pirelli", "PIRELLI"},
		{"trimmed", "", "  Nokian  ", "NOKIAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{brands: map[string]bool{}}
			if tt.existing != "" {
				lookup.brands["B1/"+tt.existing] = true
			}
			r := NewResolver(lookup, nil)
			if got := r.ResolveBrandID(context.Background(), "B1", tt.raw); got != tt.want {
				t.Errorf("ResolveBrandID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveBrandIDScopedToBranch(t *testing.T) {
	lookup := &fakeLookup{brands: map[string]bool{"B2/michelin": true}}
	r := NewResolver(lookup, nil)
	if got := r.ResolveBrandID(context.Background(), "B1", "michelin"); got != "MICHELIN" {
		t.Errorf("expected fallback MICHELIN for other branch, got %q", got)
	}
}

func TestResolveModelIDFallsBackToSlug(t *testing.T) {
	lookup := &fakeLookup{models: map[string]bool{"B1/MICHELIN/PILOT SPORT 4": true}}
	r := NewResolver(lookup, nil)
	ctx := context.Background()

	if got := r.ResolveModelID(ctx, "B1", "MICHELIN", "pilot sport 4"); got != "PILOT SPORT 4" {
		t.Errorf("expected existing upper-case model, got %q", got)
	}
	if got := r.ResolveModelID(ctx, "B1", "MICHELIN", "Primacy 4+"); got != "primacy-4" {
		t.Errorf("expected slug fallback, got %q", got)
	}
	if got := r.ResolveModelID(ctx, "B1", "MICHELIN", "+++"); got != "+++" {
		t.Errorf("expected upper-case fallback for empty slug, got %q", got)
	}
}

func TestResolveNeverFails(t *testing.T) {
	lookup := &fakeLookup{fail: true}
	r := NewResolver(lookup, nil)

	ids := r.ResolveCanonicalIDs(context.Background(), "B1", "Continental", "Eco Contact 6")
	if ids.BrandID != "CONTINENTAL" || ids.ModelID != "eco-contact-6" {
		t.Errorf("unexpected ids on lookup failure: %+v", ids)
	}
}

func TestCandidatesDeduplicated(t *testing.T) {
	lookup := &fakeLookup{brands: map[string]bool{}}
	r := NewResolver(lookup, nil)
	r.ResolveBrandID(context.Background(), "B1", "ABC")

	// "ABC", "abc" (slug and lower are equal).
	if len(lookup.calls) != 2 {
		t.Errorf("expected 2 lookups, got %d: %v", len(lookup.calls), lookup.calls)
	}
}
