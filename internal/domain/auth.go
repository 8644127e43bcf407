package domain

import "strings"

// Role enumerates helpdesk roles.
type Role string

const (
	RoleReporter   Role = "reporter"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts the canonical values plus the pelapor/teknisi labels
// stored by the first version of the helpdesk.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "reporter", "pelapor":
		return RoleReporter, true
	case "technician", "teknisi":
		return RoleTechnician, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Actor) IsTechnician() bool { return a.Role == RoleTechnician }
func (a Actor) IsReporter() bool   { return a.Role == RoleReporter }
