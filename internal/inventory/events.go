package inventory

import (
	"sync"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// EventKind identifies what changed in the store.
type EventKind int

// Event kinds.
const (
	EventItemsReplaced EventKind = iota + 1
	EventItemAdded
	EventItemUpdated
	EventItemRemoved
	EventLoadingChanged
)

func (k EventKind) String() string {
	switch k {
	case EventItemsReplaced:
		return "items_replaced"
	case EventItemAdded:
		return "item_added"
	case EventItemUpdated:
		return "item_updated"
	case EventItemRemoved:
		return "item_removed"
	case EventLoadingChanged:
		return "loading_changed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the store state has changed.
// Items is a snapshot of the whole collection taken with the change.
type Event struct {
	Kind    EventKind
	Item    model.InventoryItem
	ItemID  string
	Items   []model.InventoryItem
	Loading bool
}

// Listener receives store events.
type Listener func(Event)

// subscribers is a copy-on-write list of listeners so delivery never
// holds the lock while user code runs.
type subscribers struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []subscription
}

type subscription struct {
	id uint64
	fn Listener
}

func (s *subscribers) add(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	next := make([]subscription, len(s.listeners), len(s.listeners)+1)
	copy(next, s.listeners)
	s.listeners = append(next, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]subscription, 0, len(s.listeners))
	for _, sub := range s.listeners {
		if sub.id != id {
			next = append(next, sub)
		}
	}
	s.listeners = next
}

func (s *subscribers) snapshot() []subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listeners
}

func (s *subscribers) publish(evt Event) {
	for _, sub := range s.snapshot() {
		sub.fn(evt)
	}
}
