package models

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) Owns(r *Reservation) bool {
	return r != nil && p.ID != "" && r.UserID == p.ID
}
