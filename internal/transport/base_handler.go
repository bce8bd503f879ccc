package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// MessageResponse is the body of operations that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError renders the error envelope {"error": {...}}.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", status, "code", appErr.Code, "error", appErr)
	} else {
		h.Logger.Warn("http error", "status", status, "code", appErr.Code, "message", appErr.GetDetailedMessage())
	}
	h.WriteJSON(w, status, body)
}

// WriteError writes an ad-hoc error with the standard envelope.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	appErr := &internal.AppError{
		Type:       errorTypeForStatus(status),
		Code:       internal.ErrorCode(strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_")),
		Message:    message,
		StatusCode: status,
	}
	h.WriteAppError(w, appErr)
}

// HandleServiceError maps service errors onto HTTP responses. Anything that is
// not an AppError is reported as a generic 500 without leaking the cause.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteAppError(w, appErr)
		return
	}
	h.Logger.Error("unhandled service error", "error", err)
	h.WriteAppError(w, internal.NewInternalError("Server error", err))
}

// DecodeJSON reads a JSON body into dst. Empty bodies are allowed when
// allowEmpty is set, leaving dst untouched.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return internal.ErrInvalidRequestBody
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return internal.ErrBodyTooLarge.WithCause(err)
		}
		return internal.ErrInvalidRequestBody.WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}

	return strings.TrimSpace(authHeader[7:])
}

// Identity returns the caller put on the context by the auth middleware.
func (h *BaseHandler) Identity(w http.ResponseWriter, r *http.Request) (internal.Identity, bool) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return internal.Identity{}, false
	}
	return id, true
}

// ParseID validates a uuid path parameter.
func (h *BaseHandler) ParseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", internal.ErrInvalidID.WithCause(err)
	}
	return id.String(), nil
}

// Pagination reads page/limit, defaulting to 1/10 and clamping limit to MaxLimit.
func (h *BaseHandler) Pagination(r *http.Request) (page, limit int) {
	page, limit = DefaultPage, DefaultLimit
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func errorTypeForStatus(status int) internal.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return internal.ErrorTypeValidation
	case http.StatusUnauthorized:
		return internal.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return internal.ErrorTypeForbidden
	case http.StatusNotFound:
		return internal.ErrorTypeNotFound
	case http.StatusConflict:
		return internal.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return internal.ErrorTypeRateLimited
	default:
		return internal.ErrorTypeInternal
	}
}
