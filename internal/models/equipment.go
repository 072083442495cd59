package models

import (
	"iter"
	"time"
)

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentUnavailable EquipmentStatus = "unavailable"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

func (s EquipmentStatus) Known() bool {
	switch s {
	case EquipmentAvailable, EquipmentUnavailable, EquipmentMaintenance:
		return true
	}
	return false
}

// AcceptsRequests reports whether new reservation requests may be added.
// Unavailable and maintenance are settable overrides that block requests
// regardless of what the calendar looks like.
func (s EquipmentStatus) AcceptsRequests() bool {
	return s == EquipmentAvailable
}

// Equipment is the aggregate root for a loanable inventory item. It owns
// its reservations; they have no identity outside the record. Version backs
// the store's compare-and-swap and bumps on every persisted mutation.
type Equipment struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Location     string          `json:"location,omitempty"`
	Description  string          `json:"description,omitempty"`
	Model        string          `json:"model,omitempty"`
	Status       EquipmentStatus `json:"status"`
	Reservations []Reservation   `json:"reservations"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int64           `json:"version"`
}

// FindReservation returns a pointer into the Reservations slice, or nil.
func (e *Equipment) FindReservation(id string) *Reservation {
	for i := range e.Reservations {
		if e.Reservations[i].ID == id {
			return &e.Reservations[i]
		}
	}
	return nil
}

// ActiveReservations yields pending, approved and checked-out reservations
// in insertion order. The sequence is restartable.
func (e *Equipment) ActiveReservations() iter.Seq[*Reservation] {
	return func(yield func(*Reservation) bool) {
		for i := range e.Reservations {
			if !e.Reservations[i].Status.Active() {
				continue
			}
			if !yield(&e.Reservations[i]) {
				return
			}
		}
	}
}

// HasBlockingOverlap reports whether rng overlaps any approved or
// checked-out reservation other than exceptID.
func (e *Equipment) HasBlockingOverlap(rng TimeRange, exceptID string) bool {
	for i := range e.Reservations {
		res := &e.Reservations[i]
		if res.ID == exceptID || !res.Status.Blocking() {
			continue
		}
		if res.Range.Overlaps(rng) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so store implementations can hand out records
// without sharing the reservations slice with callers.
func (e *Equipment) Clone() *Equipment {
	cp := *e
	cp.Reservations = make([]Reservation, len(e.Reservations))
	copy(cp.Reservations, e.Reservations)
	return &cp
}
