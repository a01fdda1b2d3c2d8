package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

const (
	redisItemKeyPrefix = "inventory:item:"
	redisIndexKey      = "inventory:items"
	redisMaxRetries    = 5
)

// RedisStore implements Store on top of Redis. Each item is stored as a
// JSON string and indexed in a sorted set scored by creation time.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a new RedisStore using the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func redisItemKey(id string) string {
	return redisItemKeyPrefix + id
}

// List returns all items ordered by creation time, newest first.
func (s *RedisStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]model.InventoryItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisItemKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// deleted between ZREVRANGE and MGET
			continue
		}

		var item model.InventoryItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("list items: decode: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	item, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

// Create adds a new item and returns it with its generated ID and timestamps.
func (s *RedisStore) Create(ctx context.Context, input *model.ItemInput) (*model.InventoryItem, error) {
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

	payload, err := json.Marshal(newItem)
	if err != nil {
		return nil, fmt.Errorf("create item: encode: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisItemKey(newItem.ID), payload, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(now.UnixMicro()),
			Member: newItem.ID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return &newItem, nil
}

// Update applies a partial update to an existing item. The item key is
// watched so a concurrent writer forces a retry instead of a lost update.
func (s *RedisStore) Update(ctx context.Context, id string, patch *model.ItemPatch) (*model.InventoryItem, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	if patch == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	key := redisItemKey(id)
	var updatedItem model.InventoryItem

	txf := func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		updatedItem = patch.Apply(*existing)
		updatedAt := s.now()
		updatedItem.UpdatedAt = &updatedAt

		payload, err := json.Marshal(updatedItem)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for range redisMaxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updatedItem, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	return nil, fmt.Errorf("update item: %w", redis.TxFailedErr)
}

// Delete removes an item by its ID.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, redisItemKey(id))
		pipe.ZRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if deleted.Val() == 0 {
		return ErrNotFound
	}

	return nil
}

// redisGetter is satisfied by both *redis.Client and *redis.Tx.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads and decodes a single item.
func (s *RedisStore) load(ctx context.Context, c redisGetter, id string) (*model.InventoryItem, error) {
	raw, err := c.Get(ctx, redisItemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var item model.InventoryItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return &item, nil
}
