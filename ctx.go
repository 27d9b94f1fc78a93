package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// DefaultContextKey is the router locals key holding the current user
const DefaultContextKey = "user"

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// CurrentUser reads the user placed in locals by the protected route
// middleware, falling back to the request context.
func CurrentUser(ctx router.Context, key ...string) (*User, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	if user, ok := ctx.Locals(k).(*User); ok && user != nil {
		return user, true
	}
	return FromContext(ctx.Context())
}
