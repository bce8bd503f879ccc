package user

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/work-permit/internal/transport"
)

type ServiceAPI interface {
	ListUsers(ctx context.Context, withLocation bool) ([]*User, error)
	GetProfile(ctx context.Context, id string) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type UsersResponse struct {
	Users []*User `json:"users"`
}

// ListUsers serves GET /users?withLocation=bool. Admin only; the router
// applies RequireAdmin.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	withLocation, _ := strconv.ParseBool(r.URL.Query().Get("withLocation"))

	users, err := h.Service.ListUsers(r.Context(), withLocation)
	if err != nil {
		h.Logger.Error("ListUsers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.Identity(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetProfile(r.Context(), caller.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service error", "error", err, "user_id", caller.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}
