package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

func widgetInput() *model.ItemInput {
	return &model.ItemInput{
		Name:     "Widget",
		Quantity: 5,
		Category: "Tools",
		Status:   model.StatusInStock,
	}
}

func TestNewMemoryStore(t *testing.T) {
	// Act
	store := NewMemoryStore()

	// Assert
	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.items == nil {
		t.Error("items map should be initialized")
	}
}

func TestMemoryStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   *model.ItemInput
		wantErr bool
	}{
		{
			name:    "valid item",
			input:   widgetInput(),
			wantErr: false,
		},
		{
			name: "item with zero quantity",
			input: &model.ItemInput{
				Name:   "Backorder",
				Status: model.StatusOrdered,
			},
			wantErr: false,
		},
		{
			name:    "nil item",
			input:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			store := NewMemoryStore()
			ctx := context.Background()

			// Act
			created, err := store.Create(ctx, tt.input)

			// Assert
			if tt.wantErr {
				if !errors.Is(err, ErrNilItem) {
					t.Errorf("Create() error = %v, want ErrNilItem", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			if created.ID == "" {
				t.Error("Create() should generate an ID")
			}
			if created.Name != tt.input.Name || created.Quantity != tt.input.Quantity ||
				created.Category != tt.input.Category || created.Status != tt.input.Status {
				t.Errorf("Create() = %+v, want fields of %+v", created, tt.input)
			}
			if created.CreatedAt == nil || created.UpdatedAt == nil {
				t.Fatal("Create() should set timestamps")
			}
			if !created.CreatedAt.Equal(*created.UpdatedAt) {
				t.Error("CreatedAt and UpdatedAt should match on creation")
			}
		})
	}
}

func TestMemoryStore_ContextCancellation(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	qty := 1

	// Act & Assert
	if _, err := store.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
	if _, err := store.Get(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if _, err := store.Create(ctx, widgetInput()); !errors.Is(err, context.Canceled) {
		t.Errorf("Create() error = %v, want context.Canceled", err)
	}
	if _, err := store.Update(ctx, "x", &model.ItemPatch{Quantity: &qty}); !errors.Is(err, context.Canceled) {
		t.Errorf("Update() error = %v, want context.Canceled", err)
	}
	if err := store.Delete(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete() error = %v, want context.Canceled", err)
	}
}

func TestMemoryStore_Get(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	ctx := context.Background()
	created, err := store.Create(ctx, widgetInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "existing item", id: created.ID, wantErr: nil},
		{name: "missing item", id: "missing", wantErr: ErrNotFound},
		{name: "empty id", id: "", wantErr: ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got, err := store.Get(ctx, tt.id)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && !got.Equal(*created) {
				t.Errorf("Get() = %+v, want %+v", got, created)
			}
		})
	}
}

func TestMemoryStore_List_NewestFirst(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		created, err := store.Create(ctx, &model.ItemInput{
			Name:   fmt.Sprintf("item-%d", i),
			Status: model.StatusInStock,
		})
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		ids = append(ids, created.ID)
	}

	// Act
	items, err := store.List(ctx)

	// Assert
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(items))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %s, want %s", i, items[i].ID, want)
		}
	}
}

func TestMemoryStore_List_SameTimestampKeepsInsertionOrder(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }
	ctx := context.Background()

	first, _ := store.Create(ctx, widgetInput())
	second, _ := store.Create(ctx, widgetInput())

	// Act
	items, err := store.List(ctx)

	// Assert
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("List() order = [%s %s], want [%s %s]", items[0].ID, items[1].ID, second.ID, first.ID)
	}
}

func TestMemoryStore_List_Empty(t *testing.T) {
	store := NewMemoryStore()

	items, err := store.List(context.Background())

	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", items)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, widgetInput())
	qty := 3
	status := model.StatusLowStock

	tests := []struct {
		name    string
		id      string
		patch   *model.ItemPatch
		wantErr error
	}{
		{name: "partial update", id: created.ID, patch: &model.ItemPatch{Quantity: &qty, Status: &status}},
		{name: "missing item", id: "missing", patch: &model.ItemPatch{Quantity: &qty}, wantErr: ErrNotFound},
		{name: "empty id", id: "", patch: &model.ItemPatch{Quantity: &qty}, wantErr: ErrInvalidID},
		{name: "nil patch", id: created.ID, patch: nil, wantErr: ErrNilItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			updated, err := store.Update(ctx, tt.id, tt.patch)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if updated.Quantity != 3 || updated.Status != model.StatusLowStock {
				t.Errorf("Update() = %+v, want quantity 3 and low stock", updated)
			}
			if updated.Name != created.Name || updated.Category != created.Category {
				t.Error("Update() changed fields outside the patch")
			}
			if !updated.CreatedAt.Equal(*created.CreatedAt) {
				t.Error("Update() must preserve CreatedAt")
			}

			stored, _ := store.Get(ctx, created.ID)
			if !stored.Equal(*updated) {
				t.Errorf("stored item = %+v, want %+v", stored, updated)
			}
		})
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, widgetInput())

	// Act
	err := store.Delete(ctx, created.ID)

	// Assert
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Delete(\"\") error = %v, want ErrInvalidID", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	// Arrange
	store := NewMemoryStore()
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	wg.Add(workers)

	// Act
	for i := range workers {
		go func() {
			defer wg.Done()
			created, err := store.Create(ctx, &model.ItemInput{
				Name:     fmt.Sprintf("item-%d", i),
				Quantity: i,
				Status:   model.StatusInStock,
			})
			if err != nil {
				t.Errorf("Create() error: %v", err)
				return
			}
			qty := i + 1
			if _, err := store.Update(ctx, created.ID, &model.ItemPatch{Quantity: &qty}); err != nil {
				t.Errorf("Update() error: %v", err)
			}
			if _, err := store.List(ctx); err != nil {
				t.Errorf("List() error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Assert
	items, _ := store.List(ctx)
	if len(items) != workers {
		t.Errorf("List() returned %d items, want %d", len(items), workers)
	}
}

func TestSortNewestFirst_NilTimestampsLast(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	items := []model.InventoryItem{
		{ID: "no-time"},
		{ID: "old", CreatedAt: &t0},
		{ID: "new", CreatedAt: &t1},
	}

	sortNewestFirst(items)

	got := []string{items[0].ID, items[1].ID, items[2].ID}
	want := []string{"new", "old", "no-time"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
