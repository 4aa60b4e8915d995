package model

import "time"

// Branch is a retail branch: a tenant that owns its own inventory subtree
// and is an endpoint in transfers.
type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
