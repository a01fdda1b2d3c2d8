// Package inventory holds the client-side inventory state: an ordered
// cache of items mirrored from a remote service. Every change goes
// through the remote first and is applied locally only after the remote
// confirms it.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

const tracerName = "github.com/vyrodovalexey/inventory-tracker/internal/inventory"

// ErrDuplicateID is returned when adding an item whose ID is already cached.
var ErrDuplicateID = errors.New("item with this id already exists")

// Remote is the persistence service the store mirrors.
type Remote interface {
	// List returns every item ordered by creation time, newest first.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get returns a single item.
	Get(ctx context.Context, id string) (*model.InventoryItem, error)

	// Create stores a new item and returns it with its assigned ID and timestamps.
	Create(ctx context.Context, input model.ItemInput) (*model.InventoryItem, error)

	// Update applies a partial update and returns the full updated item.
	Update(ctx context.Context, id string, patch model.ItemPatch) (*model.InventoryItem, error)

	// Delete removes an item.
	Delete(ctx context.Context, id string) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for action outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used to record one span per action.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Store is the single source of truth for inventory state in the client.
// Consumers read through the accessor methods or Subscribe; the item
// slice is never handed out without copying.
type Store struct {
	remote Remote
	logger *zap.Logger
	tracer trace.Tracer

	// commitMu is held from a state change through delivery of its
	// event, so listeners see events in the order the state changed.
	// It is always taken before mu.
	commitMu sync.Mutex

	mu        sync.RWMutex
	items     []model.InventoryItem
	populated bool
	inFlight  int

	subs subscribers
}

// New creates a Store backed by the given remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		items:  make([]model.InventoryItem, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subscribe registers a listener for state changes and returns a function
// that removes it. Listeners run synchronously on the goroutine that made
// the change, after the store lock has been released, and receive events
// in the order the changes were made. A listener may read the store but
// must not mutate it synchronously.
func (s *Store) Subscribe(fn Listener) func() {
	return s.subs.add(fn)
}

// Items returns a copy of the cached items in order.
func (s *Store) Items() []model.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Len returns the number of cached items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loading reports whether any dispatch action is awaiting the remote.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Populated reports whether the collection has been installed by a fetch.
func (s *Store) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.populated
}

// ItemByID returns the item with the given ID.
func (s *Store) ItemByID(id string) (model.InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return model.InventoryItem{}, false
}

// ItemsByStatus returns the cached items with the given status, in order.
func (s *Store) ItemsByStatus(status model.Status) []model.InventoryItem {
	return s.filter(func(item model.InventoryItem) bool {
		return item.Status == status
	})
}

// ItemsByCategory returns the cached items in the given category, in order.
func (s *Store) ItemsByCategory(category string) []model.InventoryItem {
	return s.filter(func(item model.InventoryItem) bool {
		return item.Category == category
	})
}

func (s *Store) filter(keep func(model.InventoryItem) bool) []model.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.InventoryItem, 0)
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// InitItems replaces the whole collection with data. Later duplicates of
// an ID are dropped so the collection stays unique.
func (s *Store) InitItems(data []model.InventoryItem) {
	dropped := 0

	s.commit(func() (Event, bool) {
		items := make([]model.InventoryItem, 0, len(data))
		seen := make(map[string]struct{}, len(data))
		for _, item := range data {
			if _, dup := seen[item.ID]; dup {
				dropped++
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}

		s.items = items
		s.populated = true
		storeItems.Set(float64(len(items)))
		return Event{Kind: EventItemsReplaced, Items: cloneItems(items)}, true
	})

	if dropped > 0 {
		s.logger.Warn("dropped duplicate items from collection", zap.Int("dropped", dropped))
	}
}

// AddItem appends item to the end of the collection.
// It returns ErrDuplicateID if an item with the same ID is already cached.
func (s *Store) AddItem(item model.InventoryItem) error {
	added := s.commit(func() (Event, bool) {
		if s.indexOf(item.ID) >= 0 {
			return Event{}, false
		}

		s.items = append(s.items, item)
		storeItems.Set(float64(len(s.items)))
		return Event{Kind: EventItemAdded, Item: item, ItemID: item.ID, Items: cloneItems(s.items)}, true
	})
	if !added {
		return fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	return nil
}

// UpdateItem replaces the cached item with the same ID, keeping its
// position. It reports false and does nothing when the ID is not cached.
func (s *Store) UpdateItem(updated model.InventoryItem) bool {
	return s.commit(func() (Event, bool) {
		i := s.indexOf(updated.ID)
		if i < 0 {
			return Event{}, false
		}

		s.items[i] = updated
		return Event{Kind: EventItemUpdated, Item: updated, ItemID: updated.ID, Items: cloneItems(s.items)}, true
	})
}

// RemoveItem removes every cached item with the given ID, keeping the
// order of the rest. It reports whether anything was removed.
func (s *Store) RemoveItem(id string) bool {
	return s.commit(func() (Event, bool) {
		kept := make([]model.InventoryItem, 0, len(s.items))
		for _, item := range s.items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}

		if len(kept) == len(s.items) {
			return Event{}, false
		}

		s.items = kept
		storeItems.Set(float64(len(kept)))
		return Event{Kind: EventItemRemoved, ItemID: id, Items: cloneItems(kept)}, true
	})
}

// commit runs change under the state lock and, when it reports a change,
// delivers the resulting event before any later change can publish.
func (s *Store) commit(change func() (Event, bool)) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	evt, changed := change()
	s.mu.Unlock()

	if changed {
		s.subs.publish(evt)
	}
	return changed
}

// DispatchFetchItems loads the full collection from the remote and
// replaces the cache with it. On failure the cache is left untouched.
func (s *Store) DispatchFetchItems(ctx context.Context) error {
	return s.dispatch(ctx, actionFetchItems, "", func(ctx context.Context) error {
		items, err := s.remote.List(ctx)
		if err != nil {
			return fmt.Errorf("fetch items: %w", err)
		}

		if items != nil {
			s.InitItems(items)
		}
		return nil
	})
}

// DispatchGetItem loads a single item from the remote and merges it into
// the cache, replacing a cached copy in place or appending a new one.
func (s *Store) DispatchGetItem(ctx context.Context, id string) error {
	return s.dispatch(ctx, actionGetItem, id, func(ctx context.Context) error {
		item, err := s.remote.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get item %s: %w", id, err)
		}

		if item == nil {
			return nil
		}
		if s.UpdateItem(*item) {
			return nil
		}
		return s.AddItem(*item)
	})
}

// DispatchAddItem creates an item on the remote and appends the
// remote's record, including its assigned ID, to the cache.
func (s *Store) DispatchAddItem(ctx context.Context, input model.ItemInput) error {
	return s.dispatch(ctx, actionAddItem, "", func(ctx context.Context) error {
		item, err := s.remote.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("add item: %w", err)
		}

		if item == nil {
			return nil
		}
		if err := s.AddItem(*item); err != nil {
			return fmt.Errorf("add item: %w", err)
		}
		return nil
	})
}

// DispatchUpdateItem sends a partial update for id and replaces the
// cached item with the full record the remote returns.
func (s *Store) DispatchUpdateItem(ctx context.Context, id string, patch model.ItemPatch) error {
	return s.dispatch(ctx, actionUpdateItem, id, func(ctx context.Context) error {
		item, err := s.remote.Update(ctx, id, patch)
		if err != nil {
			return fmt.Errorf("update item %s: %w", id, err)
		}

		if item != nil {
			s.UpdateItem(*item)
		}
		return nil
	})
}

// DispatchDeleteItem deletes id on the remote and then drops it from the cache.
func (s *Store) DispatchDeleteItem(ctx context.Context, id string) error {
	return s.dispatch(ctx, actionDeleteItem, id, func(ctx context.Context) error {
		if err := s.remote.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete item %s: %w", id, err)
		}

		s.RemoveItem(id)
		return nil
	})
}

// dispatch brackets a remote round trip with the busy counter, a span,
// metrics and logging. The counter is released on every exit path.
func (s *Store) dispatch(ctx context.Context, action, itemID string, fn func(context.Context) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "inventory."+action)
	if itemID != "" {
		span.SetAttributes(attribute.String("inventory.item_id", itemID))
	}

	start := time.Now()
	s.beginLoading()

	defer func() {
		s.endLoading()

		duration := time.Since(start)
		storeActionDuration.WithLabelValues(action).Observe(duration.Seconds())
		storeActionsTotal.WithLabelValues(action, resultLabel(err)).Inc()

		fields := []zap.Field{
			zap.String("action", action),
			zap.Duration("duration", duration),
		}
		if itemID != "" {
			fields = append(fields, zap.String("item_id", itemID))
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("inventory action failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Debug("inventory action completed", fields...)
		}
		span.End()
	}()

	return fn(ctx)
}

func (s *Store) beginLoading() {
	storeActionsInFlight.Inc()
	s.commit(func() (Event, bool) {
		s.inFlight++
		return Event{Kind: EventLoadingChanged, Loading: true}, s.inFlight == 1
	})
}

func (s *Store) endLoading() {
	storeActionsInFlight.Dec()
	s.commit(func() (Event, bool) {
		s.inFlight--
		return Event{Kind: EventLoadingChanged, Loading: false}, s.inFlight == 0
	})
}

// indexOf returns the position of the first item with id, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []model.InventoryItem) []model.InventoryItem {
	out := make([]model.InventoryItem, len(items))
	copy(out, items)
	return out
}
