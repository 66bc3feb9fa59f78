package guard

import (
	"context"

	"biblio/cmd/internal/auth/session"
)

type ctxKey struct{}

// WithIdentity attaches verified access claims to ctx.
func WithIdentity(ctx context.Context, claims session.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// IdentityFrom extracts the verified access claims set by the guard.
func IdentityFrom(ctx context.Context) (session.AccessClaims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(session.AccessClaims)
	return claims, ok
}
