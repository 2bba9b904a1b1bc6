package httpapi

import (
	"context"

	"github.com/google/uuid"
)

// Role is the coarse permission level attached to an identity.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Role   Role
	Active bool
}

// Elevated reports whether the identity may use manager-level operations.
func (i Identity) Elevated() bool {
	return i.Role == RoleManager || i.Role == RoleAdmin
}

// IdentityProvider resolves bearer tokens to identities. The user store
// lives outside this module; deployments plug in their own provider.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// IdentityFunc adapts a function to the IdentityProvider interface.
type IdentityFunc func(ctx context.Context, token string) (Identity, error)

func (f IdentityFunc) Authenticate(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// identityFrom extracts the authenticated identity from a request context.
func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
