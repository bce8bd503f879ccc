package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/work-permit/internal/core/role"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

// Identity is the authenticated caller, decoded from the bearer token.
type Identity struct {
	ID    string
	Email string
	Role  role.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ContextIdentityKey).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.ID
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
