package models

// Role is the coarse permission level attached to an authenticated caller.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Known() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// CanManageBookings reports whether the role may approve, deny, check out
// or check in reservations.
func (r Role) CanManageBookings() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the already-authenticated caller passed into every operation.
// It is supplied per call and never cached.
type Identity struct {
	ID   string
	Role Role
}
