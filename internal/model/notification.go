package model

import "time"

// Notification is a branch-scoped message about an order.
type Notification struct {
	ID        string    `json:"id,omitempty"`
	BranchID  string    `json:"branch_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Event     string    `json:"event,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
