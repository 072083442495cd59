package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gearbook/internal/config"
	"gearbook/internal/domain"
	"gearbook/internal/metrics"
	"gearbook/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	equipmentKeyPrefix = "equipment:"
	equipmentIndexKey  = "equipment:index"
)

// RedisEquipmentStore keeps each equipment record as a JSON value. WATCH on
// the record key turns the read-modify-write cycle into a compare-and-swap:
// if another writer touches the key between GET and the transactional SET,
// the transaction fails and the caller sees a conflict.
type RedisEquipmentStore struct {
	client *redis.Client
}

// NewRedisClient creates a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisEquipmentStore(client *redis.Client) *RedisEquipmentStore {
	return &RedisEquipmentStore{client: client}
}

func equipmentKey(id string) string {
	return equipmentKeyPrefix + id
}

func (s *RedisEquipmentStore) Load(ctx context.Context, id string) (*models.Equipment, error) {
	val, err := s.client.Get(ctx, equipmentKey(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment from redis: %w", err)
	}
	return decodeEquipment(val)
}

func (s *RedisEquipmentStore) List(ctx context.Context, filter domain.EquipmentFilter) ([]*models.Equipment, error) {
	ids, err := s.client.SMembers(ctx, equipmentIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read equipment index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = equipmentKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget equipment: %w", err)
	}

	var result []*models.Equipment
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index member without a value; skip stale entries.
			continue
		}
		eq, err := decodeEquipment(raw)
		if err != nil {
			return nil, err
		}
		if !matchesFilter(eq, filter) {
			continue
		}
		result = append(result, eq)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *RedisEquipmentStore) Insert(ctx context.Context, eq *models.Equipment) error {
	if eq.Version == 0 {
		eq.Version = 1
	}
	data, err := json.Marshal(eq)
	if err != nil {
		return fmt.Errorf("failed to marshal equipment: %w", err)
	}

	ok, err := s.client.SetNX(ctx, equipmentKey(eq.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set equipment in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("equipment %s already exists: %w", eq.ID, domain.ErrConflict)
	}
	if err := s.client.SAdd(ctx, equipmentIndexKey, eq.ID).Err(); err != nil {
		return fmt.Errorf("failed to index equipment: %w", err)
	}
	return nil
}

func (s *RedisEquipmentStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate domain.Mutator) (*models.Equipment, error) {
	key := equipmentKey(id)
	var updated *models.Equipment

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get equipment from redis: %w", err)
		}

		eq, err := decodeEquipment(val)
		if err != nil {
			return err
		}
		if eq.Version != expectedVersion {
			return fmt.Errorf("equipment %s changed since load: %w", id, domain.ErrConflict)
		}
		if err := mutate(eq); err != nil {
			return err
		}
		eq.Version = expectedVersion + 1

		data, err := json.Marshal(eq)
		if err != nil {
			return fmt.Errorf("failed to marshal equipment: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = eq
		return nil
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		metrics.IncCASConflict()
		return nil, fmt.Errorf("equipment %s changed since load: %w", id, domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrConflict) {
		metrics.IncCASConflict()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisEquipmentStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, equipmentKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete equipment from redis: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if err := s.client.SRem(ctx, equipmentIndexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to unindex equipment: %w", err)
	}
	return nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
