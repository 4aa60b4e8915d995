package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

// CreateBranch provisions a new, active branch.
func (s *Store) CreateBranch(ctx context.Context, id, name, contact string) (*model.Branch, error) {
	if err := validateID("branch_id", id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.ValidationError{Field: "name", Reason: "required"}
	}

	now := s.now().UTC()
	b := &model.Branch{
		ID:        id,
		Name:      name,
		Contact:   contact,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docs.Create(ctx, branchRef(id), b); err != nil {
		if errors.Is(err, docstore.ErrExists) {
			return nil, &model.ConflictError{Kind: "branch", ID: id}
		}
		return nil, fmt.Errorf("creating branch: %w", err)
	}

	s.log.Info("branch created", "branch", id, "name", name)
	return b, nil
}

// GetBranch returns a branch by ID.
func (s *Store) GetBranch(ctx context.Context, id string) (*model.Branch, error) {
	if err := validateID("branch_id", id); err != nil {
		return nil, err
	}
	var b model.Branch
	if err := s.docs.Get(ctx, branchRef(id), &b); err != nil {
		return nil, notFound(err, "branch", id)
	}
	return &b, nil
}

// ListBranches returns all branches ordered by name, optionally only active ones.
func (s *Store) ListBranches(ctx context.Context, activeOnly bool) ([]model.Branch, error) {
	q := docstore.Query{Collection: branchesCollection, OrderBy: "name"}
	if activeOnly {
		q.Filters = append(q.Filters, docstore.Where("active", docstore.Eq, true))
	}

	snaps, err := s.docs.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}

	branches := make([]model.Branch, 0, len(snaps))
	for _, snap := range snaps {
		var b model.Branch
		if err := snap.DataTo(&b); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// BranchUpdate holds the branch fields to change. Nil fields are kept.
type BranchUpdate struct {
	Name    *string
	Contact *string
	Active  *bool
}

// UpdateBranch changes a branch's profile.
func (s *Store) UpdateBranch(ctx context.Context, id string, u BranchUpdate) (*model.Branch, error) {
	fields := map[string]any{"updated_at": s.now().UTC()}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, &model.ValidationError{Field: "name", Reason: "required"}
		}
		fields["name"] = name
	}
	if u.Contact != nil {
		fields["contact"] = *u.Contact
	}
	if u.Active != nil {
		fields["active"] = *u.Active
	}

	if err := validateID("branch_id", id); err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, branchRef(id), fields); err != nil {
		return nil, notFound(err, "branch", id)
	}
	return s.GetBranch(ctx, id)
}

// ActiveBranch returns the branch, failing unless it exists and is active.
func (s *Store) ActiveBranch(ctx context.Context, id string) (*model.Branch, error) {
	b, err := s.GetBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, &model.ValidationError{Field: "branch_id", Reason: fmt.Sprintf("branch %s is inactive", id)}
	}
	return b, nil
}
