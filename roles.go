package auth

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleGeneralPublic, RoleStudent, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type. An empty
// string resolves to the default role.
func ParseRole(roleStr string) (UserRole, bool) {
	if roleStr == "" {
		return RoleGeneralPublic, true
	}
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGeneralPublic,
		RoleStudent,
		RoleStaff,
		RoleAdmin,
	}
}

// RoleIsAtLeast checks if a role meets the minimum required level
func RoleIsAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleGeneralPublic: 0,
		RoleStudent:       1,
		RoleStaff:         2,
		RoleAdmin:         3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}
