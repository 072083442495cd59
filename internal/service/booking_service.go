package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"gearbook/internal/clock"
	"gearbook/internal/domain"
	"gearbook/internal/events"
	"gearbook/internal/metrics"
	"gearbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService drives the reservation lifecycle on equipment records.
// It holds no state of its own: every mutation is load, validate in memory,
// then a compare-and-swap through the store. A lost race surfaces as
// domain.ErrConflict and the caller decides whether to retry.
type BookingService struct {
	store          domain.EquipmentStore
	eventBus       domain.EventPublisher
	clk            clock.Clock
	requesterRoles map[models.Role]bool
	logger         *zerolog.Logger
}

// NewBookingService wires the engine. requesterRoles limits who may file
// new requests; empty means any authenticated role (the default policy).
func NewBookingService(store domain.EquipmentStore, eventBus domain.EventPublisher, clk clock.Clock, requesterRoles []string, logger *zerolog.Logger) *BookingService {
	allowed := make(map[models.Role]bool, len(requesterRoles))
	for _, r := range requesterRoles {
		allowed[models.Role(r)] = true
	}
	return &BookingService{
		store:          store,
		eventBus:       eventBus,
		clk:            clk,
		requesterRoles: allowed,
		logger:         logger,
	}
}

// CreateReservation appends a pending request to the equipment record.
// Overlap against existing reservations is deliberately not checked here:
// competing requests coexist in pending and are adjudicated at approval.
func (s *BookingService) CreateReservation(ctx context.Context, equipmentID string, requester models.Identity, rng models.TimeRange) (*models.Reservation, error) {
	if !rng.Valid() {
		metrics.IncTransition("create", "invalid_range")
		return nil, fmt.Errorf("start %s is not before end %s: %w", rng.Start, rng.End, domain.ErrInvalidRange)
	}
	if !requester.Role.Known() {
		metrics.IncTransition("create", "forbidden")
		return nil, fmt.Errorf("unknown role %q: %w", requester.Role, domain.ErrForbidden)
	}
	if len(s.requesterRoles) > 0 && !s.requesterRoles[requester.Role] {
		metrics.IncTransition("create", "forbidden")
		return nil, fmt.Errorf("role %s may not request reservations: %w", requester.Role, domain.ErrForbidden)
	}

	eq, err := s.store.Load(ctx, equipmentID)
	if err != nil {
		metrics.IncTransition("create", outcomeLabel(err))
		return nil, err
	}

	now := s.clk.Now()
	res := models.Reservation{
		ID:          uuid.NewString(),
		RequesterID: requester.ID,
		Range:       rng,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	updated, err := s.store.CompareAndSwap(ctx, equipmentID, eq.Version, func(eq *models.Equipment) error {
		if !eq.Status.AcceptsRequests() {
			return fmt.Errorf("equipment is %s: %w", eq.Status, domain.ErrConflict)
		}
		eq.Reservations = append(eq.Reservations, res)
		eq.UpdatedAt = now
		return nil
	})
	if err != nil {
		metrics.IncTransition("create", outcomeLabel(err))
		return nil, err
	}

	metrics.IncTransition("create", "ok")
	s.publishEvent(events.EventReservationRequested, updated, &res, requester)
	s.logger.Info().
		Str("equipment_id", equipmentID).
		Str("reservation_id", res.ID).
		Str("requester_id", requester.ID).
		Msg("reservation requested")

	return &res, nil
}

// transitionSpec names one edge of the reservation state machine.
type transitionSpec struct {
	action       string
	from         models.ReservationStatus
	to           models.ReservationStatus
	event        string
	guardOverlap bool
}

func (s *BookingService) Approve(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error) {
	return s.transition(ctx, equipmentID, reservationID, actor, transitionSpec{
		action:       "approve",
		from:         models.StatusPending,
		to:           models.StatusApproved,
		event:        events.EventReservationApproved,
		guardOverlap: true,
	})
}

func (s *BookingService) Deny(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error) {
	return s.transition(ctx, equipmentID, reservationID, actor, transitionSpec{
		action: "deny",
		from:   models.StatusPending,
		to:     models.StatusDenied,
		event:  events.EventReservationDenied,
	})
}

// CheckOut marks the item as physically removed from inventory. It does not
// touch the equipment's settable status field; flipping that is a separate
// explicit action.
func (s *BookingService) CheckOut(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error) {
	return s.transition(ctx, equipmentID, reservationID, actor, transitionSpec{
		action: "check_out",
		from:   models.StatusApproved,
		to:     models.StatusCheckedOut,
		event:  events.EventEquipmentCheckedOut,
	})
}

func (s *BookingService) CheckIn(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error) {
	return s.transition(ctx, equipmentID, reservationID, actor, transitionSpec{
		action: "check_in",
		from:   models.StatusCheckedOut,
		to:     models.StatusCheckedIn,
		event:  events.EventEquipmentCheckedIn,
	})
}

func (s *BookingService) transition(ctx context.Context, equipmentID, reservationID string, actor models.Identity, t transitionSpec) (*models.Reservation, error) {
	if !actor.Role.CanManageBookings() {
		metrics.IncTransition(t.action, "forbidden")
		return nil, fmt.Errorf("role %s may not %s reservations: %w", actor.Role, t.action, domain.ErrForbidden)
	}

	eq, err := s.store.Load(ctx, equipmentID)
	if err != nil {
		metrics.IncTransition(t.action, outcomeLabel(err))
		return nil, err
	}

	now := s.clk.Now()
	var result models.Reservation
	updated, err := s.store.CompareAndSwap(ctx, equipmentID, eq.Version, func(eq *models.Equipment) error {
		res := eq.FindReservation(reservationID)
		if res == nil {
			return fmt.Errorf("reservation %s: %w", reservationID, domain.ErrNotFound)
		}
		if res.Status != t.from {
			return fmt.Errorf("cannot %s a %s reservation: %w", t.action, res.Status, domain.ErrInvalidTransition)
		}
		if t.guardOverlap && eq.HasBlockingOverlap(res.Range, res.ID) {
			return fmt.Errorf("range overlaps an approved or checked-out reservation: %w", domain.ErrConflict)
		}
		res.Status = t.to
		res.UpdatedAt = now
		eq.UpdatedAt = now
		result = *res
		return nil
	})
	if err != nil {
		metrics.IncTransition(t.action, outcomeLabel(err))
		return nil, err
	}

	metrics.IncTransition(t.action, "ok")
	s.publishEvent(t.event, updated, &result, actor)
	s.logger.Info().
		Str("equipment_id", equipmentID).
		Str("reservation_id", reservationID).
		Str("action", t.action).
		Str("actor_id", actor.ID).
		Msg("reservation transitioned")

	return &result, nil
}

// ListReservations returns a lazy, restartable view over the record's
// reservations in insertion order. Students only ever see their own
// requests, whatever filter they asked for.
func (s *BookingService) ListReservations(ctx context.Context, equipmentID string, filter domain.ReservationFilter, caller models.Identity) (iter.Seq[models.Reservation], error) {
	eq, err := s.store.Load(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	if caller.Role == models.RoleStudent {
		filter.RequesterID = caller.ID
	}

	return func(yield func(models.Reservation) bool) {
		for _, res := range eq.Reservations {
			if filter.Status != "" && res.Status != filter.Status {
				continue
			}
			if filter.RequesterID != "" && res.RequesterID != filter.RequesterID {
				continue
			}
			if !yield(res) {
				return
			}
		}
	}, nil
}

func (s *BookingService) publishEvent(eventType string, eq *models.Equipment, res *models.Reservation, actor models.Identity) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		EquipmentID:   eq.ID,
		EquipmentName: eq.Name,
		ReservationID: res.ID,
		RequesterID:   res.RequesterID,
		Status:        res.Status,
		Start:         res.Range.Start,
		End:           res.Range.End,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", res.ID).Msg("publish event error")
	}
}

// outcomeLabel maps a domain error to a metric label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
