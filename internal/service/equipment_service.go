package service

import (
	"context"
	"fmt"

	"gearbook/internal/clock"
	"gearbook/internal/domain"
	"gearbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EquipmentService covers plain inventory CRUD. Scheduling semantics live
// in BookingService; the only coupling here is that a record with active
// reservations cannot be deleted.
type EquipmentService struct {
	store  domain.EquipmentStore
	clk    clock.Clock
	logger *zerolog.Logger
}

func NewEquipmentService(store domain.EquipmentStore, clk clock.Clock, logger *zerolog.Logger) *EquipmentService {
	return &EquipmentService{
		store:  store,
		clk:    clk,
		logger: logger,
	}
}

func (s *EquipmentService) Create(ctx context.Context, eq *models.Equipment, actor models.Identity) (*models.Equipment, error) {
	if !actor.Role.CanManageBookings() {
		return nil, fmt.Errorf("role %s may not create equipment: %w", actor.Role, domain.ErrForbidden)
	}

	now := s.clk.Now()
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	}
	if eq.Status == "" {
		eq.Status = models.EquipmentAvailable
	}
	eq.Reservations = []models.Reservation{}
	eq.CreatedAt = now
	eq.UpdatedAt = now
	eq.Version = 1

	if err := s.store.Insert(ctx, eq); err != nil {
		return nil, err
	}

	s.logger.Info().Str("equipment_id", eq.ID).Str("name", eq.Name).Msg("equipment created")
	return eq, nil
}

func (s *EquipmentService) List(ctx context.Context, filter domain.EquipmentFilter) ([]*models.Equipment, error) {
	return s.store.List(ctx, filter)
}

func (s *EquipmentService) Get(ctx context.Context, id string) (*models.Equipment, error) {
	return s.store.Load(ctx, id)
}

func (s *EquipmentService) UpdateMetadata(ctx context.Context, id string, upd domain.EquipmentUpdate, actor models.Identity) (*models.Equipment, error) {
	if !actor.Role.CanManageBookings() {
		return nil, fmt.Errorf("role %s may not update equipment: %w", actor.Role, domain.ErrForbidden)
	}

	eq, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	return s.store.CompareAndSwap(ctx, id, eq.Version, func(eq *models.Equipment) error {
		if upd.Name != nil {
			eq.Name = *upd.Name
		}
		if upd.Category != nil {
			eq.Category = *upd.Category
		}
		if upd.Location != nil {
			eq.Location = *upd.Location
		}
		if upd.Description != nil {
			eq.Description = *upd.Description
		}
		if upd.Model != nil {
			eq.Model = *upd.Model
		}
		eq.UpdatedAt = now
		return nil
	})
}

// SetStatus flips the settable availability marker. The caller validates
// the status value; the core treats it as opaque beyond the known set.
func (s *EquipmentService) SetStatus(ctx context.Context, id string, status models.EquipmentStatus, actor models.Identity) (*models.Equipment, error) {
	if !actor.Role.CanManageBookings() {
		return nil, fmt.Errorf("role %s may not change equipment status: %w", actor.Role, domain.ErrForbidden)
	}

	eq, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	updated, err := s.store.CompareAndSwap(ctx, id, eq.Version, func(eq *models.Equipment) error {
		eq.Status = status
		eq.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("equipment_id", id).Str("status", string(status)).Msg("equipment status changed")
	return updated, nil
}

func (s *EquipmentService) Delete(ctx context.Context, id string, actor models.Identity) error {
	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("role %s may not delete equipment: %w", actor.Role, domain.ErrForbidden)
	}

	eq, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}

	for range eq.ActiveReservations() {
		return fmt.Errorf("equipment %s has active reservations: %w", id, domain.ErrConflict)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("equipment_id", id).Msg("equipment deleted")
	return nil
}
