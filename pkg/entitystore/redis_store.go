package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

// RedisStore persists entity snapshots in Redis so a contact book survives
// process restarts. It is a durability layer around the in-memory Store, not
// a replacement for it: operations hydrate into and flush from a Store.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisOption represents an option for configuring the Redis store.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets a custom prefix for Redis keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		r.keyPrefix = prefix
	}
}

// WithTTL sets the TTL for persisted entities. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisStore) {
		r.ttl = ttl
	}
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client *redis.Client, options ...RedisOption) *RedisStore {
	store := &RedisStore{
		client:    client,
		keyPrefix: "contactgraph",
	}

	for _, option := range options {
		option(store)
	}

	return store
}

func (r *RedisStore) entityKey(id string) string {
	return fmt.Sprintf("%s:entity:%s", r.keyPrefix, id)
}

func (r *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:ids", r.keyPrefix)
}

// SaveEntity writes one entity snapshot.
func (r *RedisStore) SaveEntity(ctx context.Context, entity interfaces.ContactEntity) error {
	if entity.ID == "" {
		return ErrInvalidEntityID
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to serialize entity %s: %w", entity.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entityKey(entity.ID), data, r.ttl)
	pipe.SAdd(ctx, r.indexKey(), entity.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist entity %s: %w", entity.ID, err)
	}
	return nil
}

// DeleteEntity removes one entity snapshot.
func (r *RedisStore) DeleteEntity(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidEntityID
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.entityKey(id))
	pipe.SRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete entity %s: %w", id, err)
	}
	return nil
}

// Load hydrates a fresh in-memory Store from the persisted snapshots.
// Entities whose snapshot has expired are dropped from the index.
func (r *RedisStore) Load(ctx context.Context) (*Store, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entity index: %w", err)
	}

	store := New()
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.entityKey(id)).Result()
		if err == redis.Nil {
			r.client.SRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read entity %s: %w", id, err)
		}

		var entity interfaces.ContactEntity
		if err := json.Unmarshal([]byte(data), &entity); err != nil {
			return nil, fmt.Errorf("failed to parse entity %s: %w", id, err)
		}
		if err := store.Add(entity); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Flush persists every entity of the in-memory store, replacing the previous
// snapshot set.
func (r *RedisStore) Flush(ctx context.Context, store *Store) error {
	previous, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to read entity index: %w", err)
	}

	entities := store.List()
	keep := make(map[string]struct{}, len(entities))

	pipe := r.client.TxPipeline()
	for _, entity := range entities {
		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to serialize entity %s: %w", entity.ID, err)
		}
		pipe.Set(ctx, r.entityKey(entity.ID), data, r.ttl)
		pipe.SAdd(ctx, r.indexKey(), entity.ID)
		keep[entity.ID] = struct{}{}
	}
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			pipe.Del(ctx, r.entityKey(id))
			pipe.SRem(ctx, r.indexKey(), id)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}
