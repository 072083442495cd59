package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearbook/internal/domain"
	"gearbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suiteNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func suiteEquipment(id, category string, status models.EquipmentStatus, createdOffset time.Duration) *models.Equipment {
	return &models.Equipment{
		ID:           id,
		Name:         "Equipment " + id,
		Category:     category,
		Status:       status,
		Reservations: []models.Reservation{},
		CreatedAt:    suiteNow.Add(createdOffset),
		UpdatedAt:    suiteNow.Add(createdOffset),
		Version:      1,
	}
}

// runEquipmentStoreSuite drives the store contract shared by every backend.
func runEquipmentStoreSuite(t *testing.T, newStore func(t *testing.T) domain.EquipmentStore) {
	ctx := context.Background()

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Load(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("InsertAndLoad", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

		got, err := store.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "Equipment e1", got.Name)
		assert.Equal(t, int64(1), got.Version)
		assert.NotNil(t, got.Reservations)
	})

	t.Run("ListFiltersAndOrder", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e2", "support", models.EquipmentAvailable, time.Minute)))
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))
		require.NoError(t, store.Insert(ctx, suiteEquipment("e3", "camera", models.EquipmentMaintenance, 2*time.Minute)))

		all, err := store.List(ctx, domain.EquipmentFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		// Oldest first.
		assert.Equal(t, "e1", all[0].ID)
		assert.Equal(t, "e2", all[1].ID)
		assert.Equal(t, "e3", all[2].ID)

		cameras, err := store.List(ctx, domain.EquipmentFilter{Category: "camera"})
		require.NoError(t, err)
		require.Len(t, cameras, 2)

		down, err := store.List(ctx, domain.EquipmentFilter{Status: models.EquipmentMaintenance})
		require.NoError(t, err)
		require.Len(t, down, 1)
		assert.Equal(t, "e3", down[0].ID)
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

		updated, err := store.CompareAndSwap(ctx, "e1", 1, func(eq *models.Equipment) error {
			eq.Reservations = append(eq.Reservations, models.Reservation{
				ID:          "r1",
				RequesterID: "u1",
				Status:      models.StatusPending,
				Range: models.TimeRange{
					Start: suiteNow,
					End:   suiteNow.Add(48 * time.Hour),
				},
			})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		require.Len(t, updated.Reservations, 1)

		got, err := store.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, "r1", got.Reservations[0].ID)
	})

	t.Run("CompareAndSwapStaleVersion", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

		_, err := store.CompareAndSwap(ctx, "e1", 1, func(eq *models.Equipment) error {
			eq.Name = "first writer"
			return nil
		})
		require.NoError(t, err)

		// Second writer still holds version 1.
		_, err = store.CompareAndSwap(ctx, "e1", 1, func(eq *models.Equipment) error {
			eq.Name = "second writer"
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrConflict)

		got, err := store.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "first writer", got.Name)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("CompareAndSwapMutatorError", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

		sentinel := errors.New("mutator refused")
		_, err := store.CompareAndSwap(ctx, "e1", 1, func(eq *models.Equipment) error {
			eq.Name = "should not stick"
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		// A refused mutation leaves the record untouched.
		got, err := store.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "Equipment e1", got.Name)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("CompareAndSwapMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CompareAndSwap(ctx, "ghost", 1, func(eq *models.Equipment) error { return nil })
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, suiteEquipment("e1", "camera", models.EquipmentAvailable, 0)))

		require.NoError(t, store.Delete(ctx, "e1"))
		_, err := store.Load(ctx, "e1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "e1"), domain.ErrNotFound)

		list, err := store.List(ctx, domain.EquipmentFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
