package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// memoryEntry pairs an item with its insertion sequence so items
// created within the same clock tick still list newest first.
type memoryEntry struct {
	item model.InventoryItem
	seq  uint64
}

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	seq   uint64
	now   func() time.Time
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns all items ordered by creation time, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	entries := make([]memoryEntry, 0, len(s.items))
	for _, entry := range s.items {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].seq > entries[b].seq
	})

	items := make([]model.InventoryItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry.item)
	}
	sortNewestFirst(items)

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	item := entry.item
	return &item, nil
}

// Create adds a new item and returns it with its generated ID and timestamps.
func (s *MemoryStore) Create(ctx context.Context, input *model.ItemInput) (*model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	if input == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created, updated := now, now
	newItem := model.InventoryItem{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Quantity:  input.Quantity,
		Category:  input.Category,
		Status:    input.Status,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}

	s.seq++
	s.items[newItem.ID] = memoryEntry{item: newItem, seq: s.seq}

	return &newItem, nil
}

// Update applies a partial update to an existing item.
func (s *MemoryStore) Update(ctx context.Context, id string, patch *model.ItemPatch) (*model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	if patch == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	updatedItem := patch.Apply(entry.item)
	updatedAt := s.now()
	updatedItem.UpdatedAt = &updatedAt

	entry.item = updatedItem
	s.items[id] = entry

	return &updatedItem, nil
}

// Delete removes an item by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	delete(s.items, id)

	return nil
}
