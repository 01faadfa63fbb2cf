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

// MembershipService mutates board membership while keeping exactly one
// owner row per board.
type MembershipService struct {
	access  *Checker
	boards  BoardStore
	members MemberStore
	users   UserStore
	audit   AuditLogger
	log     *logger.Logger
}

func NewMembershipService(access *Checker, boards BoardStore, members MemberStore, users UserStore, audit AuditLogger, log *logger.Logger) *MembershipService {
	return &MembershipService{
		access:  access,
		boards:  boards,
		members: members,
		users:   users,
		audit:   audit,
		log:     log,
	}
}

// TransferResult describes a completed ownership transfer.
type TransferResult struct {
	BoardID         uuid.UUID `json:"boardId"`
	NewOwnerID      uuid.UUID `json:"newOwnerId"`
	PreviousOwnerID uuid.UUID `json:"previousOwnerId"`
}

// EnsureOwnerMembership upserts the owner row for ownerID. It is idempotent.
func (s *MembershipService) EnsureOwnerMembership(ctx context.Context, boardID, ownerID uuid.UUID) (*domain.BoardMember, error) {
	m, err := s.members.EnsureOwner(ctx, boardID, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("ensure owner membership: %w", err)
	}
	return m, nil
}

// TransferOwnership hands the board to newOwnerID. The acting user must be
// the current owner and stays on the board as admin.
func (s *MembershipService) TransferOwnership(ctx context.Context, boardID, actorID, newOwnerID uuid.UUID) (*TransferResult, error) {
	board, access, err := s.access.resolve(ctx, boardID, actorID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrBoardNotFound
	}
	if !access.IsOwner {
		s.log.Warn(ctx, "ownership transfer denied",
			logger.Module("membership"),
			logger.Action("transfer_ownership"),
			zap.String("role", string(access.Role)),
		)
		return nil, ErrNotOwner
	}
	if newOwnerID == actorID {
		return nil, ErrTransferToSelf
	}
	if _, err := s.users.GetUser(ctx, newOwnerID); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load new owner: %w", err)
	}

	if err := s.boards.TransferOwnership(ctx, boardID, actorID, newOwnerID); err != nil {
		switch {
		case errors.Is(err, repo.ErrOwnershipChanged):
			return nil, ErrOwnershipChanged
		case errors.Is(err, repo.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("transfer ownership: %w", err)
		}
	}

	s.log.Info(ctx, "board ownership transferred",
		logger.Module("membership"),
		logger.Action("transfer_ownership"),
		zap.String("new_owner_id", newOwnerID.String()),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditOwnershipTransfer,
		ResourceType: "board",
		ResourceID:   idString(boardID),
		Metadata: map[string]interface{}{
			"previous_owner_id": actorID.String(),
			"new_owner_id":      newOwnerID.String(),
		},
	})

	return &TransferResult{BoardID: boardID, NewOwnerID: newOwnerID, PreviousOwnerID: actorID}, nil
}

// ListMembers returns the board's members. The owner row is repaired first
// for boards created before it was written atomically.
func (s *MembershipService) ListMembers(ctx context.Context, boardID, actorID uuid.UUID) ([]domain.MemberWithUser, error) {
	board, _, err := s.access.require(ctx, boardID, actorID, domain.PermView)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureOwnerMembership(ctx, board.ID, board.OwnerID); err != nil {
		return nil, err
	}

	members, err := s.members.ListMembers(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// AddMember grants userID a role directly, without an invitation.
func (s *MembershipService) AddMember(ctx context.Context, boardID, actorID, userID uuid.UUID, role domain.Role) (*domain.BoardMember, error) {
	if !role.IsAssignable() {
		return nil, ErrInvalidRole
	}

	board, access, err := s.access.require(ctx, boardID, actorID, domain.PermManageMembers)
	if err != nil {
		return nil, err
	}
	if userID == board.OwnerID {
		return nil, ErrCannotAddOwner
	}
	if role == domain.RoleAdmin && !access.Role.IsPrivileged() {
		return nil, ErrAdminRequired
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	existing, err := s.members.GetMember(ctx, boardID, userID)
	if err != nil && !errors.Is(err, repo.ErrMemberNotFound) {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if existing != nil && existing.Role == domain.RoleAdmin && !access.Role.IsPrivileged() {
		return nil, ErrAdminRequired
	}

	m, err := s.members.UpsertMember(ctx, &domain.BoardMember{
		BoardID: boardID,
		UserID:  userID,
		Role:    role,
		AddedBy: &actorID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditMemberAdded,
		ResourceType: "board_member",
		ResourceID:   idString(userID),
		Metadata:     map[string]interface{}{"role": string(m.Role)},
	})
	return m, nil
}

// UpdateMemberRole changes a member's role. The owner row is immutable here
// and admin may only be granted or revoked by an owner or admin.
func (s *MembershipService) UpdateMemberRole(ctx context.Context, boardID, actorID, memberID uuid.UUID, newRole domain.Role) (*domain.BoardMember, error) {
	if !newRole.IsAssignable() {
		return nil, ErrInvalidRole
	}

	board, access, err := s.access.require(ctx, boardID, actorID, domain.PermManageMembers)
	if err != nil {
		return nil, err
	}
	if memberID == board.OwnerID {
		return nil, ErrOwnerImmutable
	}

	target, err := s.members.GetMember(ctx, boardID, memberID)
	if err != nil {
		if errors.Is(err, repo.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("load member: %w", err)
	}
	if (target.Role == domain.RoleAdmin || newRole == domain.RoleAdmin) && !access.Role.IsPrivileged() {
		return nil, ErrAdminRequired
	}

	updated, err := s.members.UpdateMemberRole(ctx, boardID, memberID, newRole)
	if err != nil {
		if errors.Is(err, repo.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("update member role: %w", err)
	}

	s.log.Info(ctx, "member role changed",
		logger.Module("membership"),
		logger.Action("update_member_role"),
		zap.String("member_id", memberID.String()),
		zap.String("from_role", string(target.Role)),
		zap.String("to_role", string(newRole)),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditMemberRoleChanged,
		ResourceType: "board_member",
		ResourceID:   idString(memberID),
		Metadata: map[string]interface{}{
			"from_role": string(target.Role),
			"to_role":   string(newRole),
		},
	})
	return updated, nil
}

// RemoveMember deletes a membership row. Members may always remove
// themselves; the owner never can be removed. Callers without access learn
// nothing about the board's members.
func (s *MembershipService) RemoveMember(ctx context.Context, boardID, actorID, memberID uuid.UUID) error {
	board, access, err := s.access.resolve(ctx, boardID, actorID)
	if err != nil {
		return err
	}
	if board == nil {
		return ErrBoardNotFound
	}
	selfRemoval := memberID == actorID
	if !access.HasAccess && !selfRemoval {
		return ErrNoAccess
	}
	if memberID == board.OwnerID {
		return ErrCannotRemoveOwner
	}

	if !selfRemoval {
		if !access.Can(domain.PermManageMembers) {
			return &PermissionError{Permission: domain.PermManageMembers, Role: access.Role}
		}
		target, err := s.members.GetMember(ctx, boardID, memberID)
		if err != nil {
			if errors.Is(err, repo.ErrMemberNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("load member: %w", err)
		}
		if target.Role == domain.RoleAdmin && !access.Role.IsPrivileged() {
			return ErrAdminRequired
		}
	}

	if err := s.members.DeleteMember(ctx, boardID, memberID); err != nil {
		if errors.Is(err, repo.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}

	s.log.Info(ctx, "member removed",
		logger.Module("membership"),
		logger.Action("remove_member"),
		zap.String("member_id", memberID.String()),
		zap.Bool("self_removal", selfRemoval),
	)
	recordAudit(ctx, s.log, s.audit, repo.AuditEntry{
		BoardID:      boardID,
		ActorID:      actorID,
		Action:       auditMemberRemoved,
		ResourceType: "board_member",
		ResourceID:   idString(memberID),
		Metadata:     map[string]interface{}{"self_removal": selfRemoval},
	})
	return nil
}
