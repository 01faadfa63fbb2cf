// Package handler holds the HTTP handlers of the board API. Handlers decode
// and validate input, call a service, and map service errors onto the
// standard error envelope.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/domain"
	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/http/middleware"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// listResponse wraps collection responses.
type listResponse struct {
	Data interface{} `json:"data"`
}

type validatable interface {
	Validate() error
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validation. It
// writes the error response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	ctx := r.Context()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidFormat, "request body is required")
			return false
		}
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidFormat, "invalid JSON payload")
		return false
	}

	if err := dst.Validate(); err != nil {
		httperr.BadRequest400WithFields(w, ctx, httperr.ErrCodeValidationError, "validation failed", domain.FieldErrors(err))
		return false
	}
	return true
}

// callerFrom returns the authenticated caller. Routes are mounted behind the
// auth middleware, so a miss is answered with 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		httperr.Unauthorized401(w, r.Context(), httperr.ErrCodeInvalidToken, "authentication required")
		return domain.Caller{}, false
	}
	return caller, true
}

// boardFrom returns the board id validated by the board middleware.
func boardFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	boardID, ok := middleware.GetBoardID(r.Context())
	if !ok {
		httperr.BadRequest400(w, r.Context(), httperr.ErrCodeInvalidBoardID, "boardId must be a UUID")
		return uuid.Nil, false
	}
	return boardID, true
}

// uuidParam parses a UUID path parameter.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		httperr.BadRequest400(w, r.Context(), httperr.ErrCodeInvalidParameter, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps service error kinds onto HTTP responses. Concrete
// errors are checked before their kinds.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error) {
	var permErr *service.PermissionError

	switch {
	case errors.Is(err, service.ErrNotFound):
		httperr.NotFound404(w, ctx, err.Error())
	case errors.Is(err, service.ErrNoAccess):
		httperr.Forbidden403(w, ctx, httperr.ErrCodeNoAccess, "you do not have access to this board")
	case errors.As(err, &permErr):
		httperr.WriteErrorWithFields(w, ctx, http.StatusForbidden, httperr.ErrCodeMissingPermission,
			"your role does not allow this action",
			map[string]string{"permission": string(permErr.Permission), "role": string(permErr.Role)})
	case errors.Is(err, service.ErrMissingPermission):
		httperr.Forbidden403(w, ctx, httperr.ErrCodeMissingPermission, "your role does not allow this action")
	case errors.Is(err, service.ErrForbidden):
		httperr.Forbidden403(w, ctx, httperr.ErrCodeForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidTarget):
		httperr.Unprocessable422(w, ctx, httperr.ErrCodeInvalidTarget, err.Error())
	case errors.Is(err, service.ErrConflict):
		httperr.Conflict409(w, ctx, err.Error())
	case errors.Is(err, service.ErrValidation):
		httperr.BadRequest400WithFields(w, ctx, httperr.ErrCodeValidationError, err.Error(), domain.FieldErrors(err))
	default:
		logger.GetLogger(ctx).Error(ctx, "unhandled service error",
			logger.Module("http"),
			logger.Action("handle_service_error"),
			zap.Error(err),
		)
		logger.SetRootError(ctx, err)
		httperr.InternalError500(w, ctx, "an internal error occurred")
	}
}
