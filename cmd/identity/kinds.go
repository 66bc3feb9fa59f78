package identity

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleMember is a regular library member: can borrow, reserve, rate.
	RoleMember Role = "member"

	// RoleLibrarian manages the catalog, loans, and member-facing desk
	// operations. No user administration.
	RoleLibrarian Role = "librarian"

	// RoleAdmin has full control: user management, session administration,
	// system settings.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleMember, RoleLibrarian, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// AccountStatus is the lifecycle state of a login credential set.
type AccountStatus string

const (
	// StatusActive allows sign-in and token issuance.
	StatusActive AccountStatus = "active"

	// StatusSuspended blocks sign-in and all authenticated requests until
	// an administrator reactivates the account.
	StatusSuspended AccountStatus = "suspended"

	// StatusDeleted is a soft terminal state. Accounts are never hard-deleted
	// while loans or reservations reference the user.
	StatusDeleted AccountStatus = "deleted"
)
