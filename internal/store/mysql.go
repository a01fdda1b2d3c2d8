package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	"github.com/google/uuid"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Schema creates the inventory table used by MySQLStore.
const Schema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id         CHAR(36)     NOT NULL PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	quantity   INT          NOT NULL,
	category   VARCHAR(100) NOT NULL DEFAULT '',
	status     VARCHAR(32)  NOT NULL,
	created_at DATETIME(6)  NOT NULL,
	updated_at DATETIME(6)  NOT NULL,
	INDEX idx_inventory_items_created_at (created_at)
)`

const selectItemColumns = `SELECT id, name, quantity, category, status, created_at, updated_at FROM inventory_items`

// MySQLStore implements Store on a MySQL database. The DSN must enable
// parseTime so DATETIME columns scan into time.Time.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQLStore creates a new MySQLStore using the given connection pool.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// OpenMySQL opens and verifies a MySQL connection pool.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}

// Migrate creates the inventory table if it does not exist.
func (s *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate inventory_items: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List returns all items ordered by creation time, newest first.
func (s *MySQLStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, selectItemColumns+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.InventoryItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MySQLStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, selectItemColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

// Create adds a new item and returns it with its generated ID and timestamps.
func (s *MySQLStore) Create(ctx context.Context, input *model.ItemInput) (*model.InventoryItem, error) {
	if input == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, name, quantity, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		newItem.ID, newItem.Name, newItem.Quantity, newItem.Category, string(newItem.Status),
		created, updated,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	return &newItem, nil
}

// Update applies a partial update inside a transaction holding a row lock.
func (s *MySQLStore) Update(ctx context.Context, id string, patch *model.ItemPatch) (*model.InventoryItem, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	if patch == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := scanItem(tx.QueryRowContext(ctx, selectItemColumns+` WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select item: %w", err)
	}

	updatedItem := patch.Apply(*existing)
	updatedAt := s.now()
	updatedItem.UpdatedAt = &updatedAt

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET name = ?, quantity = ?, category = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		updatedItem.Name, updatedItem.Quantity, updatedItem.Category, string(updatedItem.Status),
		updatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &updatedItem, nil
}

// Delete removes an item by its ID.
func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.InventoryItem, error) {
	var (
		item      model.InventoryItem
		status    string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Category, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.Status = model.Status(status)
	createdAt, updatedAt = createdAt.UTC(), updatedAt.UTC()
	item.CreatedAt = &createdAt
	item.UpdatedAt = &updatedAt

	return &item, nil
}
