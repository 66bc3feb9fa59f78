package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"biblio/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema identifiers are validated to avoid SQL injection via identifiers.
// - CreateUser inserts the user and its account in one transaction so the
//   one-non-deleted-account-per-user invariant holds even under concurrent
//   sign-ups (backed by a partial unique index on accounts(user_id)).
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "biblio").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "biblio",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table(name string) string {
	return fmt.Sprintf("%q.%q", s.schema, name)
}

// CreateUser creates a new user and its account transactionally.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return CreateUserResult{}, err
	}

	email := strings.TrimSpace(in.Email)
	if !IsValidEmail(email) {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid email"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	role := in.Role
	if role == "" {
		role = RoleMember
	}
	if !IsValidRole(role) {
		return CreateUserResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid role"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	emailNorm := NormalizeEmail(email)
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = emailNorm
	}

	userID, err := ids.NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}
	accountID, err := ids.NewULID(now)
	if err != nil {
		return CreateUserResult{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return CreateUserResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, display_name, email, email_norm, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.table("users")), userID, displayName, email, emailNorm, string(role), now)
	if err != nil {
		return CreateUserResult{}, mapPgError(op, err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, password_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.table("accounts")), accountID, userID, in.PasswordHash, string(StatusActive), now)
	if err != nil {
		return CreateUserResult{}, mapPgError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateUserResult{}, err
	}

	return CreateUserResult{User: User{
		ID:          userID,
		DisplayName: displayName,
		Email:       email,
		EmailNorm:   emailNorm,
		Role:        role,
		Status:      StatusActive,
		CreatedAt:   now,
	}}, nil
}

// FindByEmail loads the user and its non-deleted account by normalized email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, Account, error) {
	const op = "identity.FindByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, Account{}, err
	}

	var (
		u User
		a Account
	)

	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			u.id, u.display_name, u.email, u.email_norm, u.role, u.created_at,
			a.id, a.user_id, a.password_hash, a.status, a.created_at, a.updated_at
		FROM %s u
		JOIN %s a ON a.user_id = u.id AND a.status <> 'deleted'
		WHERE u.email_norm = $1
		LIMIT 1
	`, s.table("users"), s.table("accounts")), NormalizeEmail(email)).Scan(
		&u.ID, &u.DisplayName, &u.Email, &u.EmailNorm, &u.Role, &u.CreatedAt,
		&a.ID, &a.UserID, &a.PasswordHash, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, Account{}, fmt.Errorf("%s: %w", op, err)
	}

	u.Status = a.Status
	return u, a, nil
}

// FindUserByID resolves the user with its current role and account status.
func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.FindUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	var u User

	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT u.id, u.display_name, u.email, u.email_norm, u.role, u.created_at, a.status
		FROM %s u
		JOIN %s a ON a.user_id = u.id AND a.status <> 'deleted'
		WHERE u.id = $1
		LIMIT 1
	`, s.table("users"), s.table("accounts")), id).Scan(
		&u.ID, &u.DisplayName, &u.Email, &u.EmailNorm, &u.Role, &u.CreatedAt, &u.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// mapPgError converts unique-violation errors into typed conflicts.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "email"
		if strings.Contains(pgErr.ConstraintName, "account") {
			field = "account"
		}
		return ConflictError{Op: op, Field: field}
	}
	return fmt.Errorf("%s: %w", op, err)
}
