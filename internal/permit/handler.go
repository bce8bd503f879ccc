package permit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor internal.Identity, dto CreatePermitDTO) (*Permit, error)
	List(ctx context.Context, actor internal.Identity, q ListQuery) ([]*Permit, int64, error)
	Get(ctx context.Context, actor internal.Identity, id string) (*Permit, error)
	UpdateStatus(ctx context.Context, actor internal.Identity, id string, dto UpdatePermitDTO) (*Permit, error)
	Delete(ctx context.Context, actor internal.Identity, id string) error
}

type PermitResponse struct {
	Message string  `json:"message,omitempty"`
	Permit  *Permit `json:"permit"`
}

type ListResponse struct {
	Permits    []*Permit            `json:"permits"`
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

func (h *Handler) CreatePermit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto CreatePermitDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, PermitResponse{Message: "Permit submitted successfully", Permit: p})
}

func (h *Handler) ListPermits(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	page, limit := h.Pagination(r)
	q := ListQuery{
		Page:   page,
		Limit:  limit,
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
	}

	permits, total, err := h.Service.List(r.Context(), actor, q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Permits:    permits,
		Pagination: transport.NewPagination(page, limit, len(permits), total),
	})
}

func (h *Handler) GetPermit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermitResponse{Permit: p})
}

func (h *Handler) UpdatePermit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdatePermitDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.UpdateStatus(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermitResponse{Message: "Permit updated successfully", Permit: p})
}

func (h *Handler) DeletePermit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	id, err := h.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, transport.MessageResponse{Message: "Permit deleted successfully"})
}
