package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateAdmin(ctx context.Context, actor internal.Identity, dto CreateAdminDTO) (*user.User, error)
	ListAdmins(ctx context.Context, page, limit int) ([]*user.User, int64, error)
	GetAdmin(ctx context.Context, id string) (*user.User, error)
	UpdateAdmin(ctx context.Context, id string, dto UpdateAdminDTO) (*user.User, error)
	DeleteAdmin(ctx context.Context, actor internal.Identity, id string) error
}

type AdminResponse struct {
	Message string     `json:"message,omitempty"`
	Admin   *user.User `json:"admin"`
}

type ListResponse struct {
	Admins     []*user.User         `json:"admins"`
	Pagination transport.Pagination `json:"pagination"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto CreateAdminDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.CreateAdmin(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, AdminResponse{Message: "Admin created successfully", Admin: u})
}

func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	page, limit := h.Pagination(r)

	admins, total, err := h.Service.ListAdmins(r.Context(), page, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Admins:     admins,
		Pagination: transport.NewPagination(page, limit, len(admins), total),
	})
}

func (h *Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.GetAdmin(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AdminResponse{Admin: u})
}

func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateAdminDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.UpdateAdmin(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AdminResponse{Message: "Admin updated successfully", Admin: u})
}

func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteAdmin(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, transport.MessageResponse{Message: "Admin deleted successfully"})
}
