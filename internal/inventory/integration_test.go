package inventory_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/config"
	"github.com/vyrodovalexey/inventory-tracker/internal/inventory"
	"github.com/vyrodovalexey/inventory-tracker/internal/model"
	"github.com/vyrodovalexey/inventory-tracker/internal/remote"
	"github.com/vyrodovalexey/inventory-tracker/internal/server"
	"github.com/vyrodovalexey/inventory-tracker/internal/store"
)

// newRemoteStore runs the inventory service on an httptest server and
// returns a Store that talks to it over HTTP.
func newRemoteStore(t *testing.T) (*inventory.Store, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{ServerPort: 8080, LogLevel: "info", ShutdownTimeout: time.Second}
	srv := server.New(cfg, zap.NewNop(), store.NewMemoryStore(), nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	client, err := remote.NewClient(remote.Config{BaseURL: ts.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	return inventory.New(client), ts
}

func TestStore_EndToEnd(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s, _ := newRemoteStore(t)

	var kinds []inventory.EventKind
	unsubscribe := s.Subscribe(func(evt inventory.Event) {
		if evt.Kind != inventory.EventLoadingChanged {
			kinds = append(kinds, evt.Kind)
		}
	})
	defer unsubscribe()

	// Act: add two items
	if err := s.DispatchAddItem(ctx, model.ItemInput{Name: "Widget", Quantity: 10, Category: "Tools", Status: model.StatusInStock}); err != nil {
		t.Fatalf("DispatchAddItem() error = %v", err)
	}
	if err := s.DispatchAddItem(ctx, model.ItemInput{Name: "Gadget", Quantity: 1, Category: "Toys", Status: model.StatusLowStock}); err != nil {
		t.Fatalf("DispatchAddItem() error = %v", err)
	}

	// Assert: ids and timestamps come from the service
	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("Len = %d, want 2", len(items))
	}
	widget := items[0]
	if widget.ID == "" || widget.CreatedAt == nil || widget.UpdatedAt == nil {
		t.Errorf("service should assign id and timestamps: %+v", widget)
	}

	// Act: patch quantity only
	zero := 0
	ordered := model.StatusOrdered
	if err := s.DispatchUpdateItem(ctx, widget.ID, model.ItemPatch{Quantity: &zero, Status: &ordered}); err != nil {
		t.Fatalf("DispatchUpdateItem() error = %v", err)
	}

	got, ok := s.ItemByID(widget.ID)
	if !ok || got.Quantity != 0 || got.Status != model.StatusOrdered || got.Name != "Widget" {
		t.Errorf("after update = %+v, %v", got, ok)
	}

	// Act: a fresh fetch replaces the cache with the service's order
	if err := s.DispatchFetchItems(ctx); err != nil {
		t.Fatalf("DispatchFetchItems() error = %v", err)
	}
	items = s.Items()
	if len(items) != 2 || items[0].Name != "Gadget" || items[1].Name != "Widget" {
		t.Errorf("fetched order = %+v, want newest first", items)
	}

	// Act: delete
	if err := s.DispatchDeleteItem(ctx, widget.ID); err != nil {
		t.Fatalf("DispatchDeleteItem() error = %v", err)
	}
	if _, ok := s.ItemByID(widget.ID); ok {
		t.Error("deleted item still cached")
	}

	// Assert
	if s.Loading() {
		t.Error("Loading() should be false once every action has finished")
	}
	want := []inventory.EventKind{
		inventory.EventItemAdded,
		inventory.EventItemAdded,
		inventory.EventItemUpdated,
		inventory.EventItemsReplaced,
		inventory.EventItemRemoved,
	}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestStore_EndToEnd_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		action     func(s *inventory.Store) error
		wantStatus int
		wantIs     error
	}{
		{
			name: "invalid input",
			action: func(s *inventory.Store) error {
				return s.DispatchAddItem(ctx, model.ItemInput{Name: "", Status: model.StatusInStock})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "update unknown id",
			action: func(s *inventory.Store) error {
				one := 1
				return s.DispatchUpdateItem(ctx, "missing", model.ItemPatch{Quantity: &one})
			},
			wantStatus: http.StatusNotFound,
			wantIs:     remote.ErrNotFound,
		},
		{
			name:       "delete unknown id",
			action:     func(s *inventory.Store) error { return s.DispatchDeleteItem(ctx, "missing") },
			wantStatus: http.StatusNotFound,
			wantIs:     remote.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s, _ := newRemoteStore(t)

			// Act
			err := tt.action(s)

			// Assert
			var remoteErr *remote.Error
			if !errors.As(err, &remoteErr) {
				t.Fatalf("error = %v, want *remote.Error", err)
			}
			if remoteErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", remoteErr.StatusCode, tt.wantStatus)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if s.Len() != 0 || s.Loading() {
				t.Errorf("failed action changed state: len=%d loading=%v", s.Len(), s.Loading())
			}
		})
	}
}

func TestStore_EndToEnd_ServiceDown(t *testing.T) {
	// Arrange
	s, ts := newRemoteStore(t)
	s.InitItems([]model.InventoryItem{{ID: "keep", Name: "Cached", Status: model.StatusInStock}})
	ts.Close()

	// Act
	err := s.DispatchFetchItems(context.Background())

	// Assert
	if !errors.Is(err, remote.ErrUnavailable) {
		t.Errorf("error = %v, want %v", err, remote.ErrUnavailable)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want cached item kept", s.Len())
	}
}
