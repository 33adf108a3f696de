package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/polite-betrayal/baseline/internal/registry"
)

const modelPrefix = "model:"

func modelKey(key string) string { return modelPrefix + key }

// ModelStore keeps serialised models in Redis under "model:<key>". It
// satisfies registry.Store.
type ModelStore struct {
	c *Client
}

var _ registry.Store = (*ModelStore)(nil)

// NewModelStore creates a ModelStore on top of a Client.
func NewModelStore(c *Client) *ModelStore {
	return &ModelStore{c: c}
}

// Put stores a model. Entries never expire.
func (s *ModelStore) Put(ctx context.Context, key string, data []byte) error {
	if err := registry.ValidateKey(key); err != nil {
		return err
	}
	if err := s.c.rdb.Set(ctx, modelKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("put model %s: %w", key, err)
	}
	return nil
}

// Get returns registry.ErrNotFound when no model is stored under key.
func (s *ModelStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.c.rdb.Get(ctx, modelKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", key, err)
	}
	return data, nil
}

// Keys lists stored model keys in sorted order.
func (s *ModelStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.c.rdb.Scan(ctx, 0, modelPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), modelPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan models: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear deletes every stored model.
func (s *ModelStore) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		batch := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			batch = append(batch, modelKey(k))
		}
		if err := s.c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("clear models: %w", err)
		}
	}
	return nil
}
