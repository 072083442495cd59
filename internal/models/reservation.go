package models

import "time"

type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusApproved   ReservationStatus = "approved"
	StatusDenied     ReservationStatus = "denied"
	StatusCheckedOut ReservationStatus = "checked_out"
	StatusCheckedIn  ReservationStatus = "checked_in"
)

// Terminal reports whether no further transition is legal from the status.
func (s ReservationStatus) Terminal() bool {
	return s == StatusDenied || s == StatusCheckedIn
}

// Active reports whether the reservation still occupies the record's
// schedule: requested, granted or currently out.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusCheckedOut
}

// Blocking reports whether the status participates in the no-overlap
// invariant. Pending requests may overlap each other and approved ones.
func (s ReservationStatus) Blocking() bool {
	return s == StatusApproved || s == StatusCheckedOut
}

// Reservation is a single loan request embedded in an equipment record.
// Everything except Status and UpdatedAt is immutable after creation, and
// those two change only through a legal lifecycle transition.
type Reservation struct {
	ID          string            `json:"id"`
	RequesterID string            `json:"requester_id"`
	Range       TimeRange         `json:"range"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
