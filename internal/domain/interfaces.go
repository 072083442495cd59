package domain

import (
	"context"
	"iter"

	"gearbook/internal/models"
)

// Mutator applies an in-memory change to a loaded equipment record. It must
// be pure: no I/O, no retained references, safe to re-run by a retrying
// caller.
type Mutator func(eq *models.Equipment) error

type EquipmentFilter struct {
	Category string
	Status   models.EquipmentStatus
}

type ReservationFilter struct {
	Status      models.ReservationStatus
	RequesterID string
}

// EquipmentStore is the persistence port. All booking mutations funnel
// through CompareAndSwap: the write succeeds only if the record's version
// still matches expectedVersion, otherwise ErrConflict. Errors returned by
// the mutator pass through unchanged and nothing is persisted.
type EquipmentStore interface {
	Load(ctx context.Context, id string) (*models.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter) ([]*models.Equipment, error)
	Insert(ctx context.Context, eq *models.Equipment) error
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate Mutator) (*models.Equipment, error)
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateReservation(ctx context.Context, equipmentID string, requester models.Identity, rng models.TimeRange) (*models.Reservation, error)
	Approve(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error)
	Deny(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error)
	CheckOut(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error)
	CheckIn(ctx context.Context, equipmentID, reservationID string, actor models.Identity) (*models.Reservation, error)
	ListReservations(ctx context.Context, equipmentID string, filter ReservationFilter, caller models.Identity) (iter.Seq[models.Reservation], error)
}

// EquipmentUpdate carries optional metadata changes; nil fields are left
// untouched.
type EquipmentUpdate struct {
	Name        *string
	Category    *string
	Location    *string
	Description *string
	Model       *string
}

type EquipmentService interface {
	Create(ctx context.Context, eq *models.Equipment, actor models.Identity) (*models.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter) ([]*models.Equipment, error)
	Get(ctx context.Context, id string) (*models.Equipment, error)
	UpdateMetadata(ctx context.Context, id string, upd EquipmentUpdate, actor models.Identity) (*models.Equipment, error)
	SetStatus(ctx context.Context, id string, status models.EquipmentStatus, actor models.Identity) (*models.Equipment, error)
	Delete(ctx context.Context, id string, actor models.Identity) error
}
