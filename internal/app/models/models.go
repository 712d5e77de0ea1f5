package models

// RoleType defines the role carried in access tokens and checked by the
// authorization policy.
type RoleType string

const (
	RoleVoter      RoleType = "voter"
	RoleCandidate  RoleType = "candidate"
	RoleAdmin      RoleType = "admin"
	RoleSuperAdmin RoleType = "super_admin"
)

// IsAdmin reports whether the role grants access to administration endpoints.
func (r RoleType) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid reports whether r is one of the known roles.
func (r RoleType) Valid() bool {
	switch r {
	case RoleVoter, RoleCandidate, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
