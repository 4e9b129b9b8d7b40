package auth

// UserRole is the account role
type UserRole = string

const (
	// RoleStudent is the default learner role
	RoleStudent UserRole = "student"
	// RoleAdmin can manage users and content
	RoleAdmin UserRole = "admin"
	// RoleSuperadmin can manage everything, including admins
	RoleSuperadmin UserRole = "superadmin"
)

var roleRank = map[UserRole]int{
	RoleStudent:    1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// IsValidRole checks the role against the known vocabulary
func IsValidRole(r UserRole) bool {
	_, ok := roleRank[r]
	return ok
}

// RoleIsAtLeast reports whether role meets the minimum required role
func RoleIsAtLeast(role, min UserRole) bool {
	return roleRank[role] >= roleRank[min]
}

// RoleCanManageUsers reports whether the role may invite or edit other users
func RoleCanManageUsers(r UserRole) bool {
	return RoleIsAtLeast(r, RoleAdmin)
}
