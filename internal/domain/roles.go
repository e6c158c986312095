package domain

import "strings"

// Actor roles, ordered by privilege. Pipelines reference these in
// their transition definitions; the HTTP layer maps authenticated
// identities onto them.
const (
	RoleViewer  = "viewer"
	RoleBroker  = "broker"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

var roleLevels = map[string]int{
	RoleViewer:  1,
	RoleBroker:  2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// RoleLevel returns the privilege level of a role, 0 when unknown.
func RoleLevel(role string) int {
	return roleLevels[strings.ToLower(strings.TrimSpace(role))]
}

// RoleAtLeast reports whether role carries at least the privilege of
// required.
func RoleAtLeast(role, required string) bool {
	requiredLevel := RoleLevel(required)
	if requiredLevel == 0 {
		return false
	}
	return RoleLevel(role) >= requiredLevel
}
