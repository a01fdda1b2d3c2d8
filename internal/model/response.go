package model

import "time"

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Change event types published by the inventory service.
const (
	ChangeTypeCreated = "item_created"
	ChangeTypeUpdated = "item_updated"
	ChangeTypeDeleted = "item_deleted"
	ChangeTypePing    = "ping"
)

// ChangeEvent describes a committed change to the inventory collection.
// Item is omitted for deletions.
type ChangeEvent struct {
	Type      string         `json:"type"`
	ItemID    string         `json:"item_id,omitempty"`
	Item      *InventoryItem `json:"item,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with the current time.
func NewChangeEvent(changeType, itemID string, item *InventoryItem) ChangeEvent {
	return ChangeEvent{
		Type:      changeType,
		ItemID:    itemID,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}
