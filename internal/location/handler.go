package location

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/transport"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
)

type ServiceAPI interface {
	ToggleSharing(ctx context.Context, actor internal.Identity, dto ToggleDTO) (bool, error)
	UpdateLocation(ctx context.Context, actor internal.Identity, dto UpdateLocationDTO) (*user.Location, error)
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

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto ToggleDTO
	if err := h.DecodeJSON(r, &dto, true); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			h.WriteAppError(w, internal.NewValidationFieldError("enabled",
				"Enabled field must be a boolean", internal.ErrCodeInvalidToggle))
			return
		}
		h.HandleServiceError(w, err)
		return
	}

	enabled, err := h.Service.ToggleSharing(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	message := "Location sharing disabled"
	if enabled {
		message = "Location sharing enabled"
	}
	h.WriteJSON(w, http.StatusOK, ToggleResponse{Message: message, IsLocationSharingEnabled: enabled})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Identity(w, r)
	if !ok {
		return
	}

	var dto UpdateLocationDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	loc, err := h.Service.UpdateLocation(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UpdateResponse{Message: "Location updated successfully", Location: loc})
}
