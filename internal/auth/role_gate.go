package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/transport"
)

// RoleGate restricts routes to callers holding a given role. It must run
// after AuthMiddleware.
type RoleGate struct {
	*transport.BaseHandler
}

func NewRoleGate(lg *slog.Logger) *RoleGate {
	return &RoleGate{BaseHandler: transport.NewBaseHandler(lg)}
}

func (g *RoleGate) Require(want role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := g.Identity(w, r)
			if !ok {
				return
			}

			if !allowed(identity.Role, want) {
				g.Logger.WarnContext(r.Context(), "access denied: role not permitted",
					"user_id", identity.ID,
					"role", identity.Role.String(),
					"required_role", want.String())
				g.WriteAppError(w, deniedError(want))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *RoleGate) RequireAdmin() func(http.Handler) http.Handler {
	return g.Require(role.Admin)
}

// admins may act on user-level routes too
func allowed(have, want role.Role) bool {
	switch want {
	case role.Admin:
		return have == role.Admin
	case role.User:
		return have == role.User || have == role.Admin
	default:
		return false
	}
}

func deniedError(want role.Role) *internal.AppError {
	switch want {
	case role.Admin:
		return internal.ErrAdminRequired
	default:
		return internal.NewForbiddenError("Access denied", internal.ErrCodeAdminRequired)
	}
}
