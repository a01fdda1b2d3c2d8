// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors for inventory items.
var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrNameTooLong      = errors.New("name cannot exceed 255 characters")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrCategoryTooLong  = errors.New("category cannot exceed 100 characters")
	ErrInvalidStatus    = errors.New("status must be one of: in stock, low stock, ordered, discontinued")
	ErrEmptyPatch       = errors.New("update must change at least one field")
)

// Validation constants.
const (
	MaxNameLength     = 255
	MaxCategoryLength = 100
)

// Status is the stock state of an inventory item.
type Status string

// Known statuses. The set is closed.
const (
	StatusInStock      Status = "in stock"
	StatusLowStock     Status = "low stock"
	StatusOrdered      Status = "ordered"
	StatusDiscontinued Status = "discontinued"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusInStock, StatusLowStock, StatusOrdered, StatusDiscontinued}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusLowStock, StatusOrdered, StatusDiscontinued:
		return true
	}
	return false
}

// ParseStatus converts user input into a Status. Hyphenated and
// underscored spellings ("in-stock", "low_stock") are accepted.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", " ", "_", " ").Replace(normalized)

	s := Status(normalized)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// InventoryItem is a single tracked stock record. Timestamps are owned
// by the remote service and are nil until it assigns them.
type InventoryItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	Category  string     `json:"category"`
	Status    Status     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Equal reports whether two items carry the same values.
func (i InventoryItem) Equal(other InventoryItem) bool {
	return i.ID == other.ID &&
		i.Name == other.Name &&
		i.Quantity == other.Quantity &&
		i.Category == other.Category &&
		i.Status == other.Status &&
		timesEqual(i.CreatedAt, other.CreatedAt) &&
		timesEqual(i.UpdatedAt, other.UpdatedAt)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ItemInput holds the client-supplied fields of a new inventory item.
type ItemInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
	Status   Status `json:"status"`
}

// Validate checks if the ItemInput has valid field values.
func (in *ItemInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}

	if in.Quantity < 0 {
		return ErrNegativeQuantity
	}

	if len(in.Category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}

	if !in.Status.Valid() {
		return ErrInvalidStatus
	}

	return nil
}

// ItemPatch is a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Name     *string `json:"name,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
	Category *string `json:"category,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Quantity == nil && p.Category == nil && p.Status == nil
}

// Validate checks the fields present in the patch.
func (p *ItemPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}

	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}

	if p.Quantity != nil && *p.Quantity < 0 {
		return ErrNegativeQuantity
	}

	if p.Category != nil && len(*p.Category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}

	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}

	return nil
}

// Apply returns a copy of item with the patch fields written over it.
func (p *ItemPatch) Apply(item InventoryItem) InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	return item
}

// PatchFromInput builds a patch that overwrites every client field.
func PatchFromInput(in ItemInput) ItemPatch {
	return ItemPatch{
		Name:     &in.Name,
		Quantity: &in.Quantity,
		Category: &in.Category,
		Status:   &in.Status,
	}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}

	return nil
}
