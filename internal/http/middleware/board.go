package middleware

import (
	"context"
	"net/http"

	"boardkit-api/internal/http/httperr"
	"boardkit-api/internal/observability/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const boardIDKey contextKey = "board_id"

// BoardMiddleware parses the {boardId} path parameter. It does not decide
// access; handlers ask the access checker.
func BoardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := chi.URLParam(r, "boardId")
		boardID, err := uuid.Parse(raw)
		if err != nil || boardID == uuid.Nil {
			httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidBoardID, "boardId must be a UUID")
			return
		}

		trace.SpanFromContext(ctx).SetAttributes(attribute.String("board_id", boardID.String()))

		ctx = context.WithValue(ctx, boardIDKey, boardID)
		ctx = logger.SetBoardIDInContext(ctx, boardID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetBoardID returns the board id validated by BoardMiddleware.
func GetBoardID(ctx context.Context) (uuid.UUID, bool) {
	boardID, ok := ctx.Value(boardIDKey).(uuid.UUID)
	return boardID, ok
}
