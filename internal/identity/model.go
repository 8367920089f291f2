package identity

import "time"

// Role classifies what an account is allowed to do.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Satisfies reports whether the role meets the required level. Admin
// satisfies any requirement, standard only satisfies standard.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

// Status tracks phone verification progress. It only ever moves from
// unverified to verified, never back.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
)

// User represents a registered account holder.
type User struct {
	ID           string
	Phone        string
	PasswordHash []byte
	Role         Role
	Status       Status
	CreatedAt    time.Time
}
