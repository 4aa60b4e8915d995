package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/zaloga/internal/docstore"
	"github.com/erazemk/zaloga/internal/model"
)

// Collection holds notification documents.
var Collection = docstore.Collection("notifications")

// StoreSink writes notifications into the document store, where the
// recipient branch reads them and marks them read.
type StoreSink struct {
	docs docstore.Store
}

// NewStoreSink returns a sink writing to docs.
func NewStoreSink(docs docstore.Store) *StoreSink {
	return &StoreSink{docs: docs}
}

// Name implements the sink label.
func (s *StoreSink) Name() string { return "store" }

// Emit stores ev as an unread notification.
func (s *StoreSink) Emit(ctx context.Context, ev Event) error {
	n := model.Notification{
		BranchID: ev.BranchID,
		Title:    ev.Title,
		Message:  ev.Message,
		Link:     ev.Link,
		OrderID:  ev.OrderID,
		Event:    ev.Event,
	}
	if _, err := s.docs.Add(ctx, Collection, n); err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	UnreadOnly bool
	Since      time.Time
	Limit      int
}

// List returns a branch's notifications, newest first.
func (s *StoreSink) List(ctx context.Context, branchID string, opts ListOptions) ([]model.Notification, error) {
	q := docstore.Query{
		Collection:  Collection,
		Filters:     []docstore.Filter{docstore.Where("branch_id", docstore.Eq, branchID)},
		CreatedFrom: opts.Since,
		Desc:        true,
		Limit:       opts.Limit,
	}
	if opts.UnreadOnly {
		q.Filters = append(q.Filters, docstore.Where("is_read", docstore.Eq, false))
	}

	snaps, err := s.docs.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	out := make([]model.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n model.Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags a notification as read.
func (s *StoreSink) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return &model.ValidationError{Field: "id", Reason: "required"}
	}
	err := s.docs.Update(ctx, Collection.Doc(id), map[string]any{"is_read": true})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return &model.NotFoundError{Kind: "notification", ID: id}
		}
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}
