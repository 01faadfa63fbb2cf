package handler

import (
	"context"
	"net/http"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/observability/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BoardService interface {
	CreateBoard(ctx context.Context, actorID uuid.UUID, req *domain.CreateBoardRequest) (*domain.Board, error)
	GetBoard(ctx context.Context, boardID, actorID uuid.UUID) (*domain.BoardWithAccess, error)
	ListBoards(ctx context.Context, actorID uuid.UUID) ([]domain.Board, error)
	UpdateBoard(ctx context.Context, boardID, actorID uuid.UUID, req *domain.UpdateBoardRequest) (*domain.Board, error)
	DeleteBoard(ctx context.Context, boardID, actorID uuid.UUID) error
}

// AccessChecker is the board access decision function.
type AccessChecker interface {
	CheckAccess(ctx context.Context, boardID, userID uuid.UUID) (domain.AccessResult, error)
}

type BoardHandler struct {
	boards BoardService
	access AccessChecker
}

func NewBoardHandler(boards BoardService, access AccessChecker) *BoardHandler {
	return &BoardHandler{boards: boards, access: access}
}

// CreateBoard handles POST /v1/boards
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req domain.CreateBoardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	board, err := h.boards.CreateBoard(ctx, caller.UserID, &req)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}

	logger.GetLogger(ctx).Info(ctx, "board created",
		logger.Module("http"),
		logger.Action("create_board"),
		zap.String("board_id", board.ID.String()),
	)
	writeJSON(w, http.StatusCreated, board)
}

// ListBoards handles GET /v1/boards
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	boards, err := h.boards.ListBoards(ctx, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: boards})
}

// GetBoard handles GET /v1/boards/{boardId}
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	board, err := h.boards.GetBoard(ctx, boardID, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// UpdateBoard handles PATCH /v1/boards/{boardId}
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	var req domain.UpdateBoardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	board, err := h.boards.UpdateBoard(ctx, boardID, caller.UserID, &req)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// DeleteBoard handles DELETE /v1/boards/{boardId}
func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	if err := h.boards.DeleteBoard(ctx, boardID, caller.UserID); err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccess handles GET /v1/boards/{boardId}/access. A caller without
// access gets hasAccess=false, not an error, so clients can render state.
func (h *BoardHandler) GetAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	boardID, ok := boardFrom(w, r)
	if !ok {
		return
	}

	access, err := h.access.CheckAccess(ctx, boardID, caller.UserID)
	if err != nil {
		handleServiceError(w, ctx, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}
