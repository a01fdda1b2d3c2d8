package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

func getMySQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := OpenMySQL(ctx, dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	store := NewMySQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		t.Fatalf("Migrate() error: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM inventory_items`); err != nil {
		db.Close()
		t.Fatalf("cleanup failed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestMySQLStore_CRUD(t *testing.T) {
	db := getMySQLDB(t)
	store := NewMySQLStore(db)
	ctx := context.Background()

	created, err := store.Create(ctx, widgetInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Equal(*created) {
		t.Errorf("Get() = %+v, want %+v", got, created)
	}

	name := "Sprocket"
	updated, err := store.Update(ctx, created.ID, &model.ItemPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Name != "Sprocket" || updated.Quantity != created.Quantity {
		t.Errorf("Update() = %+v", updated)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMySQLStore_ListNewestFirst(t *testing.T) {
	db := getMySQLDB(t)
	store := NewMySQLStore(db)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	first, _ := store.Create(ctx, widgetInput())
	second, _ := store.Create(ctx, widgetInput())

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("List() = %+v, want newest first", items)
	}
}

func TestMySQLStore_UpdateMissing(t *testing.T) {
	db := getMySQLDB(t)
	store := NewMySQLStore(db)
	qty := 1

	_, err := store.Update(context.Background(), "missing", &model.ItemPatch{Quantity: &qty})

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}
