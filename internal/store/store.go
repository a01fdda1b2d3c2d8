// Package store provides persistence for the inventory service.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Store errors.
var (
	ErrNotFound      = errors.New("item not found")
	ErrAlreadyExists = errors.New("item already exists")
	ErrInvalidID     = errors.New("invalid item ID")
	ErrNilItem       = errors.New("item cannot be nil")
)

// Store defines the interface for inventory item storage operations.
type Store interface {
	// List returns all items ordered by creation time, newest first.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.InventoryItem, error)

	// Create adds a new item and returns it with its generated ID and timestamps.
	Create(ctx context.Context, input *model.ItemInput) (*model.InventoryItem, error)

	// Update applies a partial update to an existing item and returns the full record.
	Update(ctx context.Context, id string, patch *model.ItemPatch) (*model.InventoryItem, error)

	// Delete removes an item by its ID.
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by stores backed by an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sortNewestFirst orders items by created_at descending. Items without
// a creation time sort last; ties keep their relative order.
func sortNewestFirst(items []model.InventoryItem) {
	sort.SliceStable(items, func(a, b int) bool {
		ca, cb := items[a].CreatedAt, items[b].CreatedAt
		switch {
		case ca == nil:
			return false
		case cb == nil:
			return true
		default:
			return ca.After(*cb)
		}
	})
}
