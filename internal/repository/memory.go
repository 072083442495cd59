package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gearbook/internal/domain"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
)

// MemoryEquipmentStore keeps equipment records in process memory. Used in
// tests and the dev storage backend. The mutex makes CompareAndSwap atomic
// relative to concurrent writers.
type MemoryEquipmentStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Equipment
}

func NewMemoryEquipmentStore() *MemoryEquipmentStore {
	return &MemoryEquipmentStore{
		byID: make(map[string]*models.Equipment),
	}
}

func (s *MemoryEquipmentStore) Load(ctx context.Context, id string) (*models.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eq, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	return eq.Clone(), nil
}

func (s *MemoryEquipmentStore) List(ctx context.Context, filter domain.EquipmentFilter) ([]*models.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Equipment, 0, len(s.byID))
	for _, eq := range s.byID {
		if !matchesFilter(eq, filter) {
			continue
		}
		result = append(result, eq.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryEquipmentStore) Insert(ctx context.Context, eq *models.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[eq.ID]; ok {
		return fmt.Errorf("equipment %s already exists: %w", eq.ID, domain.ErrConflict)
	}
	if eq.Version == 0 {
		eq.Version = 1
	}
	s.byID[eq.ID] = eq.Clone()
	return nil
}

func (s *MemoryEquipmentStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate domain.Mutator) (*models.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if cur.Version != expectedVersion {
		metrics.IncCASConflict()
		return nil, fmt.Errorf("equipment %s changed since load: %w", id, domain.ErrConflict)
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = expectedVersion + 1

	s.byID[id] = next
	return next.Clone(), nil
}

func (s *MemoryEquipmentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	delete(s.byID, id)
	return nil
}

func matchesFilter(eq *models.Equipment, filter domain.EquipmentFilter) bool {
	if filter.Category != "" && eq.Category != filter.Category {
		return false
	}
	if filter.Status != "" && eq.Status != filter.Status {
		return false
	}
	return true
}
