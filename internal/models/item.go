package models

import (
	"time"
)

// Item represents a connection/relationship with a financial institution via the provider.
// One Item can have multiple Accounts (e.g., checking + credit card from same bank).
// The engine only ever mutates Cursor; everything else is written when the user
// links the institution.
type Item struct {
	ID          string    `json:"id"` // Provider's itemId
	UserID      int64     `json:"userId"`
	AccessToken string    `json:"-"` // Opaque provider credential, never serialized
	Cursor      *string   `json:"cursor,omitempty"` // nil = never synced, full resync from the beginning
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
