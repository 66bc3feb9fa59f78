package identity

import (
	"context"
	"time"
)

// User is Biblio's canonical security principal.
type User struct {
	ID          string
	DisplayName string
	Email       string
	EmailNorm   string
	Role        Role

	// Status mirrors the owning account's status so the guard can resolve
	// {id, role, status} in one read.
	Status AccountStatus

	CreatedAt time.Time
}

// Account holds a user's login credentials.
// PasswordHash is a PHC-encoded Argon2id string; the salt and work factors
// are embedded in the encoding.
type Account struct {
	ID           string
	UserID       string
	PasswordHash string
	Status       AccountStatus

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// CreateUserInput describes a sign-up request. The password has already been
// policy-checked and hashed by the caller.
type CreateUserInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
	Role         Role
	Now          time.Time
}

// CreateUserResult returns the created user.
type CreateUserResult struct {
	User User
}

// Store is the identity persistence boundary.
//
// Invariant: exactly one non-deleted Account exists per user; CreateUser
// enforces it transactionally, and FindByEmail resolves through that account.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error)

	// FindByEmail loads the user and its active-or-suspended account for
	// credential verification. Deleted accounts behave as not found.
	FindByEmail(ctx context.Context, email string) (User, Account, error)

	// FindUserByID resolves {id, role, status} for the guard's per-request
	// role re-check. Must reflect role changes immediately.
	FindUserByID(ctx context.Context, id string) (User, error)
}
