package session

import "slices"

// Authorizer is the pluggable role-check predicate consumed by
// Context.Authorize and Context.IsAuthorized. It receives the roles held
// by the user and the roles required by the caller, and must be pure:
// no side effects, no stored state.
type Authorizer func(userRoles, requiredRoles []string) bool

// defaultAuthorizer grants access when at least one required role is
// present in the user's role set.
func defaultAuthorizer(userRoles, requiredRoles []string) bool {
	for _, required := range requiredRoles {
		if slices.Contains(userRoles, required) {
			return true
		}
	}
	return false
}
