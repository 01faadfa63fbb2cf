package service

import (
	"context"
	"errors"
	"fmt"

	"boardkit-api/internal/domain"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/repo"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Checker is the board access decision function. Every board-scoped
// operation goes through it; results are recomputed on each call.
type Checker struct {
	boards    BoardStore
	members   MemberStore
	log       *logger.Logger
	decisions metric.Int64Counter
}

type CheckerOption func(*Checker)

// WithDecisionCounter counts decisions by source and outcome.
func WithDecisionCounter(counter metric.Int64Counter) CheckerOption {
	return func(c *Checker) {
		c.decisions = counter
	}
}

func NewChecker(boards BoardStore, members MemberStore, log *logger.Logger, opts ...CheckerOption) *Checker {
	c := &Checker{boards: boards, members: members, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAccess resolves the caller's access to a board. A missing board or a
// zero user id yields no access, not an error; errors mean a store failed.
func (c *Checker) CheckAccess(ctx context.Context, boardID, userID uuid.UUID) (domain.AccessResult, error) {
	_, access, err := c.resolve(ctx, boardID, userID)
	return access, err
}

// CheckPermission reports whether the caller holds perm on the board.
func (c *Checker) CheckPermission(ctx context.Context, boardID, userID uuid.UUID, perm domain.Permission) (bool, error) {
	access, err := c.CheckAccess(ctx, boardID, userID)
	if err != nil {
		return false, err
	}
	return access.Can(perm), nil
}

// RequirePermission fails with ErrBoardNotFound for a missing board,
// ErrNoAccess when the caller has no role, and *PermissionError when the
// role lacks perm.
func (c *Checker) RequirePermission(ctx context.Context, boardID, userID uuid.UUID, perm domain.Permission) (domain.AccessResult, error) {
	_, access, err := c.require(ctx, boardID, userID, perm)
	return access, err
}

func (c *Checker) require(ctx context.Context, boardID, userID uuid.UUID, perm domain.Permission) (*domain.Board, domain.AccessResult, error) {
	board, access, err := c.resolve(ctx, boardID, userID)
	if err != nil {
		return nil, access, err
	}
	if board == nil {
		return nil, access, ErrBoardNotFound
	}
	if !access.HasAccess {
		c.log.Warn(ctx, "board access denied",
			logger.Module("access"),
			logger.Action("require_permission"),
			zap.String("permission", string(perm)),
		)
		return board, access, ErrNoAccess
	}
	if !access.Can(perm) {
		c.log.Warn(ctx, "board permission denied",
			logger.Module("access"),
			logger.Action("require_permission"),
			zap.String("permission", string(perm)),
			zap.String("role", string(access.Role)),
		)
		return board, access, &PermissionError{Permission: perm, Role: access.Role}
	}
	return board, access, nil
}

// resolve applies the precedence owner, explicit member, visibility. The
// returned board is nil when it does not exist.
func (c *Checker) resolve(ctx context.Context, boardID, userID uuid.UUID) (*domain.Board, domain.AccessResult, error) {
	board, err := c.boards.GetBoard(ctx, boardID)
	if errors.Is(err, repo.ErrBoardNotFound) {
		c.record(ctx, domain.NoAccess())
		return nil, domain.NoAccess(), nil
	}
	if err != nil {
		return nil, domain.NoAccess(), fmt.Errorf("load board: %w", err)
	}

	access, err := c.decide(ctx, board, userID)
	if err != nil {
		return nil, domain.NoAccess(), err
	}

	c.record(ctx, access)
	c.log.Debug(ctx, "board access resolved",
		logger.Module("access"),
		logger.Action("check_access"),
		zap.Bool("has_access", access.HasAccess),
		zap.String("role", string(access.Role)),
		zap.String("source", string(access.Source)),
	)
	return board, access, nil
}

func (c *Checker) decide(ctx context.Context, board *domain.Board, userID uuid.UUID) (domain.AccessResult, error) {
	if userID == uuid.Nil {
		return domain.NoAccess(), nil
	}

	// ownership is authoritative whatever the membership row says
	if board.OwnerID == userID {
		return domain.Granted(domain.RoleOwner, domain.AccessSourceOwner), nil
	}

	member, err := c.members.GetMember(ctx, board.ID, userID)
	switch {
	case err == nil:
		role := member.Role
		if role == domain.RoleOwner {
			// stale row left behind by an interrupted ownership change
			role = domain.RoleAdmin
		}
		return domain.Granted(role, domain.AccessSourceMember), nil
	case !errors.Is(err, repo.ErrMemberNotFound):
		return domain.NoAccess(), fmt.Errorf("load membership: %w", err)
	}

	if role, ok := board.Visibility.ImpliedRole(); ok {
		return domain.Granted(role, domain.AccessSourceVisibility), nil
	}
	return domain.NoAccess(), nil
}

func (c *Checker) record(ctx context.Context, access domain.AccessResult) {
	if c.decisions == nil {
		return
	}
	c.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(access.Source)),
		attribute.Bool("granted", access.HasAccess),
	))
}
