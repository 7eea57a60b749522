package accounts

import "strings"

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleUser:       0,
		RoleAdmin:      1,
		RoleSuperAdmin: 2,
	}

	level, ok := roleHierarchy[r]
	if !ok {
		return false
	}

	required, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return level >= required
}

// ParseRole normalizes a raw role string, reporting whether it is valid.
// Matching is case-insensitive, "ADMIN" parses to RoleAdmin.
func ParseRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.IsValid()
}
