package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reservation(id string, status ReservationStatus, startDay, endDay int) Reservation {
	return Reservation{
		ID:     id,
		Status: status,
		Range:  TimeRange{Start: date(startDay), End: date(endDay)},
	}
}

func TestReservationStatus(t *testing.T) {
	assert.True(t, StatusDenied.Terminal())
	assert.True(t, StatusCheckedIn.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusCheckedOut.Terminal())

	assert.True(t, StatusPending.Active())
	assert.True(t, StatusApproved.Active())
	assert.True(t, StatusCheckedOut.Active())
	assert.False(t, StatusDenied.Active())
	assert.False(t, StatusCheckedIn.Active())

	assert.True(t, StatusApproved.Blocking())
	assert.True(t, StatusCheckedOut.Blocking())
	assert.False(t, StatusPending.Blocking())
	assert.False(t, StatusDenied.Blocking())
	assert.False(t, StatusCheckedIn.Blocking())
}

func TestEquipmentStatus(t *testing.T) {
	assert.True(t, EquipmentAvailable.AcceptsRequests())
	assert.False(t, EquipmentUnavailable.AcceptsRequests())
	assert.False(t, EquipmentMaintenance.AcceptsRequests())

	assert.True(t, EquipmentAvailable.Known())
	assert.False(t, EquipmentStatus("broken").Known())
}

func TestEquipment_FindReservation(t *testing.T) {
	eq := &Equipment{
		Reservations: []Reservation{
			reservation("r1", StatusPending, 1, 5),
			reservation("r2", StatusApproved, 3, 7),
		},
	}

	found := eq.FindReservation("r2")
	assert.NotNil(t, found)
	assert.Equal(t, StatusApproved, found.Status)

	// The pointer aliases the slice element, so mutations stick.
	found.Status = StatusCheckedOut
	assert.Equal(t, StatusCheckedOut, eq.Reservations[1].Status)

	assert.Nil(t, eq.FindReservation("missing"))
}

func TestEquipment_ActiveReservations(t *testing.T) {
	eq := &Equipment{
		Reservations: []Reservation{
			reservation("r1", StatusPending, 1, 5),
			reservation("r2", StatusDenied, 1, 5),
			reservation("r3", StatusCheckedOut, 6, 9),
			reservation("r4", StatusCheckedIn, 10, 12),
		},
	}

	var ids []string
	for res := range eq.ActiveReservations() {
		ids = append(ids, res.ID)
	}
	assert.Equal(t, []string{"r1", "r3"}, ids)

	// Restartable: a second pass yields the same sequence.
	ids = ids[:0]
	for res := range eq.ActiveReservations() {
		ids = append(ids, res.ID)
	}
	assert.Equal(t, []string{"r1", "r3"}, ids)
}

func TestEquipment_HasBlockingOverlap(t *testing.T) {
	eq := &Equipment{
		Reservations: []Reservation{
			reservation("r1", StatusApproved, 1, 5),
			reservation("r2", StatusPending, 3, 7),
			reservation("r3", StatusDenied, 1, 10),
		},
	}

	// Overlaps the approved r1.
	assert.True(t, eq.HasBlockingOverlap(TimeRange{Start: date(3), End: date(7)}, "r2"))
	// Pending and denied reservations never block.
	assert.False(t, eq.HasBlockingOverlap(TimeRange{Start: date(5), End: date(9)}, ""))
	// A reservation does not conflict with itself.
	assert.False(t, eq.HasBlockingOverlap(TimeRange{Start: date(1), End: date(5)}, "r1"))
}

func TestEquipment_Clone(t *testing.T) {
	eq := &Equipment{
		ID:           "e1",
		Reservations: []Reservation{reservation("r1", StatusPending, 1, 5)},
	}

	cp := eq.Clone()
	cp.Reservations[0].Status = StatusApproved
	cp.Reservations = append(cp.Reservations, reservation("r2", StatusPending, 6, 8))

	assert.Equal(t, StatusPending, eq.Reservations[0].Status)
	assert.Len(t, eq.Reservations, 1)
}
