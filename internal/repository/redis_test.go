package repository

import (
	"context"
	"testing"

	"gearbook/internal/domain"
	"gearbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisEquipmentStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisEquipmentStore(client)
}

func TestRedisEquipmentStore(t *testing.T) {
	runEquipmentStoreSuite(t, func(t *testing.T) domain.EquipmentStore {
		return newRedisStore(t)
	})
}

func TestRedisEquipmentStore_DuplicateInsert(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))
	err := store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRedisEquipmentStore_ListSkipsStaleIndexEntries(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisEquipmentStore(client)

	require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

	// An index member whose value key is gone must not break listing.
	require.NoError(t, client.SAdd(ctx, equipmentIndexKey, "orphan").Err())

	list, err := store.List(ctx, domain.EquipmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].ID)
}

func TestPingAndClose(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, Ping(context.Background(), client))
	require.NoError(t, Close(client))
	assert.NoError(t, Close(nil))
}
