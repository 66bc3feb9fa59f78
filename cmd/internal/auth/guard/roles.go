package guard

import "biblio/cmd/identity"

// RoleSet is the set of roles allowed on a route. An empty set means any
// authenticated caller.
type RoleSet []identity.Role

// Roles builds a RoleSet.
func Roles(roles ...identity.Role) RoleSet { return RoleSet(roles) }

// AnyAuthenticated admits every authenticated caller regardless of role.
var AnyAuthenticated = RoleSet{}

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r identity.Role) bool {
	for _, v := range s {
		if v == r {
			return true
		}
	}
	return false
}

// Table maps "METHOD /pattern" route keys to their required roles.
// Routes absent from the table are not guarded at all; register those
// handlers directly.
type Table map[string]RoleSet

// For returns the required roles for routeKey. The zero RoleSet (any
// authenticated caller) is returned for guarded routes without role
// restrictions.
func (t Table) For(routeKey string) RoleSet {
	return t[routeKey]
}
