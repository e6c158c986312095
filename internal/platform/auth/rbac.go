package auth

import (
	"errors"
	"net/http"

	"github.com/tradeline-labs/tradeline-go/internal/domain"
)

var ErrForbidden = errors.New("forbidden")

// HasAtLeast reports whether any of the identity's roles reaches the
// required privilege level. Role ordering lives in the domain package
// so the guard and the HTTP layer agree on it.
func HasAtLeast(roles []string, required string) bool {
	requiredLevel := domain.RoleLevel(required)
	if requiredLevel == 0 {
		return false
	}
	maxLevel := 0
	for _, role := range roles {
		if level := domain.RoleLevel(role); level > maxLevel {
			maxLevel = level
		}
	}
	return maxLevel >= requiredLevel
}

// HighestRole returns the most privileged of the identity's roles, or
// the empty string when none are recognized.
func HighestRole(roles []string) string {
	best := ""
	bestLevel := 0
	for _, role := range roles {
		if level := domain.RoleLevel(role); level > bestLevel {
			best, bestLevel = role, level
		}
	}
	return best
}

// RequiredRoleForRequest maps HTTP methods onto the coarse minimum
// role: reads need viewer, writes need at least broker. Per-edge role
// checks happen in the transition guard, not here.
func RequiredRoleForRequest(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return domain.RoleViewer
	default:
		return domain.RoleBroker
	}
}

// MethodRoleAuthorizer enforces RequiredRoleForRequest.
func MethodRoleAuthorizer() AuthorizeFunc {
	return func(r *http.Request, identity Identity) error {
		if !HasAtLeast(identity.Roles, RequiredRoleForRequest(r)) {
			return ErrForbidden
		}
		return nil
	}
}
