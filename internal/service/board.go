package service

import (
	"context"
	"errors"
	"fmt"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BoardService struct {
	access *Checker
	boards BoardStore
	audit  AuditLogger
	log    *logger.Logger
}

func NewBoardService(access *Checker, boards BoardStore, audit AuditLogger, log *logger.Logger) *BoardService {
	return &BoardService{access: access, boards: boards, audit: audit, log: log}
}

// CreateBoard creates a board owned by the caller together with the owner
// membership row.
func (s *BoardService) CreateBoard(ctx context.Context, actorID uuid.UUID, req *domain.CreateBoardRequest) (*domain.Board, error) {
	if req.Visibility == "" {
		req.Visibility = domain.VisibilityPrivate
	}
	if !req.Visibility.IsValid() {
		return nil, fmt.Errorf("%w: visibility %q", ErrValidation, req.Visibility)
	}

	board := &domain.Board{
		ID:          uuid.New(),
		OwnerID:     actorID,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Visibility:  req.Visibility,
	}
	if err := s.boards.CreateBoard(ctx, board); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("create board: %w", err)
	}

	s.log.Info(ctx, "board created",
		logger.Module("board"),
		logger.Action("create_board"),
		zap.String("board_id", board.ID.String()),
		zap.String("visibility", string(board.Visibility)),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      board.ID,
		ActorID:      actorID,
		Action:       auditBoardCreated,
		ResourceType: "board",
		ResourceID:   idString(board.ID),
		Metadata:     map[string]interface{}{"visibility": string(board.Visibility)},
	})
	return board, nil
}

// GetBoard returns the board with the caller's access decision.
func (s *BoardService) GetBoard(ctx context.Context, boardID, actorID uuid.UUID) (*domain.BoardWithAccess, error) {
	board, access, err := s.access.require(ctx, boardID, actorID, domain.PermView)
	if err != nil {
		return nil, err
	}
	return &domain.BoardWithAccess{Board: *board, Access: access}, nil
}

// ListBoards returns boards the caller owns or is a member of. Boards only
// reachable through visibility are not listed.
func (s *BoardService) ListBoards(ctx context.Context, actorID uuid.UUID) ([]domain.Board, error) {
	boards, err := s.boards.ListBoardsForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *BoardService) UpdateBoard(ctx context.Context, boardID, actorID uuid.UUID, req *domain.UpdateBoardRequest) (*domain.Board, error) {
	board, _, err := s.access.require(ctx, boardID, actorID, domain.PermEditBoard)
	if err != nil {
		return nil, err
	}
	if req.Visibility != nil && !req.Visibility.IsValid() {
		return nil, fmt.Errorf("%w: visibility %q", ErrValidation, *req.Visibility)
	}
	if req.IsEmpty() {
		return board, nil
	}

	previous := board.Visibility
	req.Apply(board)

	updated, err := s.boards.UpdateBoard(ctx, board)
	if err != nil {
		if errors.Is(err, repo.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("update board: %w", err)
	}

	metadata := map[string]interface{}{}
	if updated.Visibility != previous {
		metadata["visibility_from"] = string(previous)
		metadata["visibility_to"] = string(updated.Visibility)
	}
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditBoardUpdated,
		ResourceType: "board",
		ResourceID:   idString(boardID),
		Metadata:     metadata,
	})
	return updated, nil
}

// DeleteBoard removes the board, its memberships and invitations.
func (s *BoardService) DeleteBoard(ctx context.Context, boardID, actorID uuid.UUID) error {
	if _, _, err := s.access.require(ctx, boardID, actorID, domain.PermDeleteBoard); err != nil {
		return err
	}

	if err := s.boards.DeleteBoard(ctx, boardID); err != nil {
		if errors.Is(err, repo.ErrBoardNotFound) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("delete board: %w", err)
	}

	s.log.Info(ctx, "board deleted",
		logger.Module("board"),
		logger.Action("delete_board"),
		zap.String("board_id", boardID.String()),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditBoardDeleted,
		ResourceType: "board",
		ResourceID:   idString(boardID),
	})
	return nil
}
